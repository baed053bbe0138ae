package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/kronos-sync/calendars"
	"github.com/goliatone/kronos-sync/pkg/testsupport/calendarfake"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestLoadFixtureJSON(t *testing.T) {
	path := writeFile(t, "test.json", `{"name":"test","value":42}`)

	var result map[string]any
	LoadFixtureJSON(t, path, &result)

	if result["name"] != "test" {
		t.Errorf("expected name=test, got %v", result["name"])
	}
	if result["value"] != float64(42) {
		t.Errorf("expected value=42, got %v", result["value"])
	}
}

func TestSeedCalendar(t *testing.T) {
	path := writeFile(t, "calendar.json", `{
		"holidays": [{"date": "2025-12-25", "name": "Natale", "scope": "national"}],
		"closures": [{"name": "Summer", "start_date": "2025-08-11", "end_date": "2025-08-15",
			"closure_type": "total", "is_paid": true, "consumes_leave_balance": false}],
		"exceptions": [{"date": "2025-06-02", "exception_type": "working", "reason": "Inventory"}]
	}`)

	seeded := SeedCalendar(t, calendarfake.New(), path)

	if len(seeded.Holidays) != 1 || seeded.Holidays[0].ID == "" || seeded.Holidays[0].Year != 2025 {
		t.Errorf("unexpected holidays: %+v", seeded.Holidays)
	}
	if len(seeded.Closures) != 1 || seeded.Closures[0].Pay != calendars.PayPaid {
		t.Errorf("unexpected closures: %+v", seeded.Closures)
	}
	if len(seeded.Exceptions) != 1 || seeded.Exceptions[0].Type != calendars.ExceptionWorking {
		t.Errorf("unexpected exceptions: %+v", seeded.Exceptions)
	}
}

func TestLoadEvents(t *testing.T) {
	path := writeFile(t, "events.jsonl", `{"notification_type":"leave_request_approved"}

{"type":"expense_report_paid"}
{"title":"no type"}
`)

	events := LoadEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != "leave_request_approved" || events[1].Type != "expense_report_paid" || events[2].Type != "" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestCompareWithGolden_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "out.txt")

	CompareWithGolden(t, path, []byte("hello"))

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("golden file not created: %q, %v", data, err)
	}
	CompareWithGolden(t, path, []byte("hello"))
}

func TestPaths(t *testing.T) {
	if got := FixturePath("calendar.json"); got != filepath.Join("testdata", "calendar.json") {
		t.Errorf("unexpected fixture path %q", got)
	}
	if got := GoldenPath("view.txt"); got != filepath.Join("testdata", "golden", "view.txt") {
		t.Errorf("unexpected golden path %q", got)
	}
}
