package realtime_test

import (
	"context"
	"testing"

	"github.com/goliatone/kronos-sync/cache"
	"github.com/goliatone/kronos-sync/internal/logging"
	"github.com/goliatone/kronos-sync/pkg/testsupport"
	"github.com/goliatone/kronos-sync/realtime"
)

type countingInvalidator struct {
	prefixes map[string]int
}

func (c *countingInvalidator) Invalidate(ctx context.Context, keys ...cache.Key) {}

func (c *countingInvalidator) InvalidatePrefix(ctx context.Context, prefix cache.Key) {
	c.prefixes[prefix.String()]++
}

func (c *countingInvalidator) InvalidateAll(ctx context.Context) {}

func TestBridge_RecordedEvents(t *testing.T) {
	events := testsupport.LoadEvents(t, testsupport.FixturePath("events.jsonl"))
	inv := &countingInvalidator{prefixes: make(map[string]int)}
	bus := realtime.NewBus()
	bridge := realtime.NewBridge(inv, realtime.DefaultRoutes(), logging.Discard())
	if err := bridge.Attach(bus); err != nil {
		t.Fatal(err)
	}
	defer bridge.Detach()

	for _, evt := range events {
		bus.PublishNotification(evt)
	}

	want := map[string]int{
		"notifications": 4,
		"dashboard":     4,
		"leaves":        1,
		"balances":      1,
		"calendar":      1,
		"expenses":      1,
	}
	for prefix, n := range want {
		if inv.prefixes[prefix] != n {
			t.Errorf("%s invalidated %d times, want %d", prefix, inv.prefixes[prefix], n)
		}
	}
	if len(inv.prefixes) != len(want) {
		t.Errorf("unexpected prefixes: %v", inv.prefixes)
	}
}
