package calendars

import "testing"

func sampleHolidays() []Holiday {
	return []Holiday{
		{ID: "1", Date: "2025-12-25", Name: "Natale", Scope: ScopeNational, IsConfirmed: true},
		{ID: "2", Date: "2025-06-24", Name: "San Giovanni", Scope: ScopeLocal},
		{ID: "3", Date: "2025-12-24", Name: "Company party", Scope: ScopeCompany},
		{ID: "4", Date: "2025-04-25", Name: "Liberazione", Scope: ScopeNational, IsConfirmed: true},
		{ID: "5", Date: "2025-09-19", Name: "San Gennaro", Scope: ScopeRegional},
	}
}

func TestFilterByScope(t *testing.T) {
	hs := sampleHolidays()

	if got := FilterByScope(hs, ""); len(got) != len(hs) {
		t.Errorf("empty scope should keep everything, got %d", len(got))
	}
	if got := FilterByScope(hs, ScopeNational); len(got) != 2 {
		t.Errorf("expected 2 national holidays, got %d", len(got))
	}
	local := FilterByScope(hs, ScopeLocal)
	if len(local) != 2 {
		t.Fatalf("expected local and company holidays together, got %+v", local)
	}
	if local[1].Scope != ScopeCompany {
		t.Errorf("records must keep their own scope, got %q", local[1].Scope)
	}
	if got := FilterByScope(hs, ScopeCompany); len(got) != 2 {
		t.Errorf("company filter should match local too, got %d", len(got))
	}
}

func TestSortByDate(t *testing.T) {
	hs := sampleHolidays()
	sorted := SortByDate(hs)

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Date > sorted[i].Date {
			t.Fatalf("not sorted at %d: %s > %s", i, sorted[i-1].Date, sorted[i].Date)
		}
	}
	if hs[0].ID != "1" {
		t.Error("SortByDate must not reorder its input")
	}
}

func TestUnconfirmedAndClosuresOn(t *testing.T) {
	if got := Unconfirmed(sampleHolidays()); len(got) != 3 {
		t.Errorf("expected 3 unconfirmed holidays, got %d", len(got))
	}

	closures := []Closure{
		{ID: "a", StartDate: "2025-08-11", EndDate: "2025-08-15"},
		{ID: "b", StartDate: "2025-12-24", EndDate: "2025-12-31"},
	}
	if got := ClosuresOn(closures, "2025-08-13"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("unexpected closures: %+v", got)
	}
}

func TestWorkingOnly(t *testing.T) {
	in := []WorkingDayException{
		{ID: "1", Type: ExceptionNonWorking},
		{ID: "2", Type: ExceptionWorking},
	}
	got := WorkingOnly(in)
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("unexpected result: %+v", got)
	}
	if WorkingOnly(nil) != nil {
		t.Error("nil input should stay nil")
	}
}
