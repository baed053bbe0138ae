package testsupport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/kronos-sync/calendars"
	"github.com/goliatone/kronos-sync/pkg/testsupport/calendarfake"
	"github.com/goliatone/kronos-sync/realtime"
)

// CalendarFixture is the JSON layout of a seeded calendar.
type CalendarFixture struct {
	Holidays   []calendars.Holiday             `json:"holidays"`
	Closures   []calendars.Closure             `json:"closures"`
	Exceptions []calendars.WorkingDayException `json:"exceptions"`
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// SeedCalendar loads a CalendarFixture and stores every record in s.
// The stored records, with their assigned IDs, are returned.
func SeedCalendar(t testing.TB, s *calendarfake.Server, path string) CalendarFixture {
	t.Helper()

	var fixture CalendarFixture
	LoadFixtureJSON(t, path, &fixture)

	var out CalendarFixture
	for _, h := range fixture.Holidays {
		out.Holidays = append(out.Holidays, s.SeedHoliday(h))
	}
	for _, c := range fixture.Closures {
		out.Closures = append(out.Closures, s.SeedClosure(c))
	}
	for _, e := range fixture.Exceptions {
		out.Exceptions = append(out.Exceptions, s.SeedException(e))
	}
	return out
}

// LoadEvents reads one JSON notification per line. Blank lines are skipped.
func LoadEvents(t testing.TB, path string) []realtime.NotificationEvent {
	t.Helper()

	var events []realtime.NotificationEvent
	scanner := bufio.NewScanner(bytes.NewReader(LoadFixture(t, path)))
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		evt, err := realtime.DecodeNotification(raw)
		if err != nil {
			t.Fatalf("%s:%d: %v", path, line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to read events from %s: %v", path, err)
	}
	return events
}

// CompareWithGolden compares actual with the content of a golden file.
// A missing golden file is created from actual.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("failed to create directory for %s: %v", path, err)
			}
			if err := os.WriteFile(path, actual, 0o644); err != nil {
				t.Fatalf("failed to write golden file %s: %v", path, err)
			}
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if !bytes.Equal(actual, expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
