package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestKeyFor_BasicTypes(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		parts  []any
		want   string
	}{
		{name: "domain only", domain: "notifications", want: "notifications"},
		{name: "year scope", domain: "leaves", parts: []any{2025}, want: joinWithSeparator("leaves", "2025")},
		{
			name:   "sub-resource and year",
			domain: DomainSystemCalendars,
			parts:  []any{"holidays", 2025},
			want:   joinWithSeparator("system_calendars", "holidays", "2025"),
		},
		{name: "bool and float", domain: "x", parts: []any{true, 1.5}, want: joinWithSeparator("x", "true", "1.5")},
		{name: "nil part", domain: "x", parts: []any{nil}, want: joinWithSeparator("x", "nil")},
		{name: "nil pointer", domain: "x", parts: []any{(*int)(nil)}, want: joinWithSeparator("x", "nil")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyFor(tt.domain, tt.parts...).String()
			if got != tt.want {
				t.Errorf("KeyFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFor_CompositeTypes(t *testing.T) {
	type filter struct {
		Status string
		Page   int
		secret string
	}
	year := 2025

	tests := []struct {
		name string
		part any
		want string
	}{
		{name: "pointer", part: &year, want: "2025"},
		{name: "slice", part: []int{1, 2}, want: "slice[2]:{1,2}"},
		{name: "nil slice", part: []int(nil), want: "slice:nil"},
		{name: "array", part: [2]string{"a", "b"}, want: "array[2]:{a,b}"},
		{name: "map sorted", part: map[string]int{"b": 2, "a": 1}, want: "map[2]:{a=1,b=2}"},
		{name: "nil map", part: map[string]int(nil), want: "map:nil"},
		{name: "struct exported fields", part: filter{Status: "pending", Page: 2, secret: "x"}, want: "struct:{Status:pending,Page:2}"},
		{name: "stringer", part: time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), want: "2025-08-11 00:00:00 +0000 UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyFor("d", tt.part)
			if len(got) != 2 || got[1] != tt.want {
				t.Errorf("KeyFor() part = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFor_Deterministic(t *testing.T) {
	a := KeyFor("leaves", 2025, map[string]int{"x": 1, "y": 2})
	b := KeyFor("leaves", 2025, map[string]int{"y": 2, "x": 1})
	if !a.Equal(b) {
		t.Errorf("expected equal keys, got %v and %v", a, b)
	}
}

func TestKeys_SubResourcesNeverCollide(t *testing.T) {
	keys := SystemCalendarKeys(2025)
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k.String()] {
			t.Fatalf("duplicate key %v", k)
		}
		seen[k.String()] = true
	}

	if HolidaysKey(2025).Equal(HolidaysKey(2026)) {
		t.Error("expected different years to produce different keys")
	}
	if HolidaysKey(2025).Equal(ClosuresKey(2025)) {
		t.Error("expected holidays and closures to produce different keys")
	}
}

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{name: "domain prefix", key: LeavesKey(2025), prefix: Prefix(DomainLeaves), want: true},
		{name: "exact", key: LeavesKey(2025), prefix: LeavesKey(2025), want: true},
		{name: "empty prefix", key: LeavesKey(2025), prefix: Key{}, want: true},
		{name: "longer prefix", key: Prefix(DomainLeaves), prefix: LeavesKey(2025), want: false},
		{name: "segment boundary", key: KeyFor("leaves_history", 2025), prefix: Prefix(DomainLeaves), want: false},
		{name: "different year", key: LeavesKey(2025), prefix: LeavesKey(2026), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("HasPrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	key := ClosuresKey(2025)
	if got := ParseKey(key.String()); !got.Equal(key) {
		t.Errorf("ParseKey() = %v, want %v", got, key)
	}
	if got := ParseKey(""); len(got) != 0 {
		t.Errorf("expected empty key, got %v", got)
	}
	if got := ClosuresKey(2025).Domain(); got != DomainSystemCalendars {
		t.Errorf("Domain() = %v", got)
	}

	type filter struct{ Team string }
	tricky := KeyFor(DomainUsers, "team::7", filter{Team: `a\b`}, "")
	if got := ParseKey(tricky.String()); !got.Equal(tricky) {
		t.Errorf("ParseKey() = %q, want %q", got, tricky)
	}
}

func TestKey_StringKeepsScopesApart(t *testing.T) {
	a := KeyFor(DomainUsers, "team::7")
	b := KeyFor(DomainUsers, "team", 7)
	if a.Equal(b) {
		t.Fatal("expected structurally different keys")
	}
	if a.String() == b.String() {
		t.Errorf("expected different strings, both are %q", a.String())
	}
}

var keySink string

func BenchmarkKeyFor(b *testing.B) {
	for i := 0; i < b.N; i++ {
		keySink = KeyFor(DomainSystemCalendars, ResourceHolidays, 2025).String()
	}
}
