package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/kronos-sync/cache"
)

// recordingInvalidator records invalidated prefixes in order.
type recordingInvalidator struct {
	mu       sync.Mutex
	prefixes []string
	keys     []string
	all      int
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, keys ...cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.keys = append(r.keys, k.String())
	}
}

func (r *recordingInvalidator) InvalidatePrefix(ctx context.Context, prefix cache.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefix.String())
}

func (r *recordingInvalidator) InvalidateAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
}

func (r *recordingInvalidator) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prefixes...), r.all
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBridge_HandleRoutedEvent(t *testing.T) {
	inv := &recordingInvalidator{}
	bridge := NewBridge(inv, DefaultRoutes(), nil)

	bridge.Handle(context.Background(), NotificationEvent{Type: "leave_request_approved"})

	got, _ := inv.snapshot()
	want := []string{"notifications", "leaves", "balances", "calendar", "dashboard"}
	if !equalStrings(got, want) {
		t.Errorf("invalidated %v, want %v", got, want)
	}
}

func TestBridge_HandleUnknownEvent(t *testing.T) {
	tests := []struct {
		name string
		evt  NotificationEvent
	}{
		{"unknown type", NotificationEvent{Type: "badge_earned"}},
		{"missing type", NotificationEvent{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &recordingInvalidator{}
			NewBridge(inv, nil, nil).Handle(context.Background(), tt.evt)

			got, _ := inv.snapshot()
			if !equalStrings(got, []string{"notifications", "dashboard"}) {
				t.Errorf("invalidated %v", got)
			}
		})
	}
}

func TestBridge_NormalizesEventType(t *testing.T) {
	for _, typ := range []string{"LeaveRequestApproved", "leave-request-approved", " Leave Request Approved "} {
		inv := &recordingInvalidator{}
		NewBridge(inv, nil, nil).Handle(context.Background(), NotificationEvent{Type: typ})

		got, _ := inv.snapshot()
		if len(got) != 5 {
			t.Errorf("%q: invalidated %v", typ, got)
		}
	}
}

func TestBridge_AttachDetach(t *testing.T) {
	inv := &recordingInvalidator{}
	bus := NewBus()
	bridge := NewBridge(inv, nil, nil)

	if err := bridge.Attach(nil); err != ErrNilBus {
		t.Fatalf("expected ErrNilBus, got %v", err)
	}
	if err := bridge.Attach(bus); err != nil {
		t.Fatal(err)
	}
	if err := bridge.Attach(bus); err != nil {
		t.Fatal(err)
	}
	if n, r := bus.Listeners(); n != 1 || r != 1 {
		t.Fatalf("expected one listener per signal, got %d and %d", n, r)
	}
	if bridge.State() != Attached {
		t.Fatalf("expected attached, got %s", bridge.State())
	}

	bus.PublishNotification(NotificationEvent{Type: "expense_report_paid"})
	bus.RequestRefresh()
	got, all := inv.snapshot()
	if !equalStrings(got, []string{"notifications", "expenses", "dashboard"}) || all != 1 {
		t.Errorf("unexpected invalidations: %v all=%d", got, all)
	}

	bridge.Detach()
	bridge.Detach()
	if n, r := bus.Listeners(); n != 0 || r != 0 {
		t.Fatalf("listeners leaked after detach: %d and %d", n, r)
	}
	if bridge.State() != Detached {
		t.Fatalf("expected detached, got %s", bridge.State())
	}

	bus.PublishNotification(NotificationEvent{Type: "expense_report_paid"})
	bus.RequestRefresh()
	if got2, all2 := inv.snapshot(); len(got2) != len(got) || all2 != all {
		t.Error("a detached bridge must not react to the bus")
	}
}

func TestBridge_MoveToAnotherBus(t *testing.T) {
	first, second := NewBus(), NewBus()
	bridge := NewBridge(&recordingInvalidator{}, nil, nil)

	bridge.Attach(first)
	bridge.Attach(second)

	if n, _ := first.Listeners(); n != 0 {
		t.Error("expected the first bus to be released")
	}
	if n, _ := second.Listeners(); n != 1 {
		t.Error("expected a listener on the second bus")
	}
}

func TestBridge_InvalidatesRealCache(t *testing.T) {
	svc, err := cache.NewQueryService(cache.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	load := func(key cache.Key) {
		cache.Query(ctx, svc, key, func(ctx context.Context) (int, error) { return 1, nil })
	}
	leaves, trips := cache.LeavesKey(2025), cache.KeyFor(cache.DomainTrips, 2025)
	load(leaves)
	load(trips)

	NewBridge(svc, nil, nil).Handle(ctx, NotificationEvent{Type: "leave_request_approved"})

	if !svc.Snapshot(leaves).Stale {
		t.Error("expected leaves to be stale")
	}
	if svc.Snapshot(trips).Stale {
		t.Error("trips must not be touched")
	}
	if !svc.Snapshot(leaves).HasValue {
		t.Error("invalidation must keep the last value")
	}
}

func TestDecodeNotification(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"notification_type":"leave_request_approved","type":"info"}`, "leave_request_approved"},
		{`{"type":"expense_report_paid"}`, "expense_report_paid"},
		{`{"title":"hello"}`, ""},
	}
	for _, tt := range tests {
		evt, err := DecodeNotification([]byte(tt.body))
		if err != nil {
			t.Fatalf("DecodeNotification(%s): %v", tt.body, err)
		}
		if evt.Type != tt.want {
			t.Errorf("DecodeNotification(%s).Type = %q, want %q", tt.body, evt.Type, tt.want)
		}
	}
	if _, err := DecodeNotification([]byte("{")); err == nil {
		t.Error("expected malformed JSON to fail")
	}
}

func TestRoutes_LookupAndWith(t *testing.T) {
	routes := DefaultRoutes()
	if routes.Lookup("nope") != nil || routes.Known("nope") {
		t.Error("unknown type must not be routed")
	}

	custom := routes.With("BadgeEarned", cache.Prefix(cache.DomainUsers))
	if got := custom.Lookup("badge_earned"); len(got) != 1 || got[0].String() != "users" {
		t.Errorf("unexpected route: %v", got)
	}
	if routes.Known("badge_earned") {
		t.Error("With must not modify the receiver")
	}
}

func TestNormalizeEventType(t *testing.T) {
	tests := map[string]string{
		"leave_request_approved":   "leave_request_approved",
		"LeaveRequestApproved":     "leave_request_approved",
		"LEAVE_REQUEST_APPROVED":   "leave_request_approved",
		"leave-request-approved":   "leave_request_approved",
		"trip.request.approved":    "trip_request_approved",
		" Leave Request Approved ": "leave_request_approved",
		"expenseReport.paid":       "expense_report_paid",
		"calendar__updated":        "calendar_updated",
		"":                         "",
	}
	for in, want := range tests {
		if got := NormalizeEventType(in); got != want {
			t.Errorf("NormalizeEventType(%q) = %q, want %q", in, got, want)
		}
	}
}
