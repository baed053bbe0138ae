package calendarfake

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/kronos-sync/calendars"
)

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestNationalHolidays_Easter(t *testing.T) {
	h := nationalHolidays(2025)
	if h["2025-04-21"] != "Lunedì dell'Angelo" {
		t.Errorf("expected Easter Monday on 2025-04-21, got %v", h)
	}
	if len(h) != 12 {
		t.Errorf("expected 12 national holidays, got %d", len(h))
	}
}

func TestServer_GenerateIsIdempotent(t *testing.T) {
	_, ts := NewTestServer(t)
	url := ts.URL + "/api/v1/calendar/holidays/generate"

	var first, second []calendars.Holiday
	resp := post(t, url, map[string]int{"year": 2025})
	json.NewDecoder(resp.Body).Decode(&first)
	resp.Body.Close()
	resp = post(t, url, map[string]int{"year": 2025})
	json.NewDecoder(resp.Body).Decode(&second)
	resp.Body.Close()

	if len(first) != 12 || len(second) != 0 {
		t.Errorf("expected 12 then 0 holidays, got %d and %d", len(first), len(second))
	}
}

func TestServer_CopySkipsExisting(t *testing.T) {
	s, ts := NewTestServer(t)
	s.SeedHoliday(calendars.Holiday{Date: "2024-06-24", Name: "San Giovanni", Scope: calendars.ScopeLocal})
	s.SeedHoliday(calendars.Holiday{Date: "2024-12-24", Name: "Vigilia", Scope: calendars.ScopeCompany})
	url := ts.URL + "/api/v1/calendar/holidays/copy"
	req := map[string]int{"source_year": 2024, "target_year": 2025}

	for i, want := range []int{2, 0} {
		resp := post(t, url, req)
		var out struct{ Copied int }
		json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if out.Copied != want {
			t.Errorf("call %d: copied %d, want %d", i+1, out.Copied, want)
		}
	}
}

func TestServer_UnknownIDReturnsDetail(t *testing.T) {
	_, ts := NewTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/calendar/closures/nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Closure not found") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestServer_FailNext(t *testing.T) {
	s, ts := NewTestServer(t)
	s.FailNext(http.StatusServiceUnavailable, "maintenance")

	for _, want := range []int{http.StatusServiceUnavailable, http.StatusOK} {
		resp, err := http.Get(ts.URL + "/api/v1/calendar/holidays?year=2025")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("expected %d, got %d", want, resp.StatusCode)
		}
	}
	if got := s.Requests(http.MethodGet, "/api/v1/calendar/holidays"); got != 2 {
		t.Errorf("expected 2 recorded requests, got %d", got)
	}
}

func TestServer_ICS(t *testing.T) {
	s, ts := NewTestServer(t)
	s.SeedHoliday(calendars.Holiday{Date: "2025-12-25", Name: "Natale", Scope: calendars.ScopeNational})
	s.SeedClosure(calendars.Closure{Name: "Summer", StartDate: "2025-08-11", EndDate: "2025-08-15", Type: calendars.ClosureTotal})

	resp, err := http.Get(ts.URL + "/api/v1/calendar/ics/combined?year=2025")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	ics := string(body)
	for _, want := range []string{"SUMMARY:Natale", "SUMMARY:Summer", "DTEND;VALUE=DATE:20250816"} {
		if !strings.Contains(ics, want) {
			t.Errorf("ics missing %q", want)
		}
	}
}
