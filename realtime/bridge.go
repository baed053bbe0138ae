package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/kronos-sync/cache"
)

// ErrNilBus is returned by Attach when no bus is given.
var ErrNilBus = errors.New("realtime: nil bus")

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kronos_realtime_events_total",
	Help: "Realtime signals handled by the sync bridge, by outcome.",
}, []string{"outcome"})

// State of a Bridge.
type State int

const (
	Detached State = iota
	Attached
)

func (s State) String() string {
	if s == Attached {
		return "attached"
	}
	return "detached"
}

// Bridge turns bus signals into cache invalidations. It never calls the
// network and never reports errors: an unknown event still refreshes the
// notification and dashboard caches.
type Bridge struct {
	invalidator cache.Invalidator
	routes      Routes
	logger      *slog.Logger

	mu          sync.Mutex
	state       State
	bus         *Bus
	unsubscribe []func()
}

// NewBridge creates a detached bridge. Nil routes use DefaultRoutes.
func NewBridge(invalidator cache.Invalidator, routes Routes, logger *slog.Logger) *Bridge {
	if routes == nil {
		routes = DefaultRoutes()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		invalidator: invalidator,
		routes:      routes,
		logger:      logger.With(slog.String("component", "realtime_bridge")),
	}
}

// Attach starts listening on bus for both signals. Attaching again to the
// same bus is a no-op; attaching to another bus detaches from the first.
func (b *Bridge) Attach(bus *Bus) error {
	if bus == nil {
		return ErrNilBus
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Attached {
		if b.bus == bus {
			return nil
		}
		b.detachLocked()
	}

	b.unsubscribe = []func(){
		bus.OnNotification(func(evt NotificationEvent) {
			b.Handle(context.Background(), evt)
		}),
		bus.OnManualRefresh(func() {
			b.Refresh(context.Background())
		}),
	}
	b.bus = bus
	b.state = Attached
	b.logger.Debug("attached")
	return nil
}

// Detach removes both listeners. Detaching a detached bridge is a no-op.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked()
}

func (b *Bridge) detachLocked() {
	if b.state == Detached {
		return
	}
	for _, unsubscribe := range b.unsubscribe {
		unsubscribe()
	}
	b.unsubscribe = nil
	b.bus = nil
	b.state = Detached
	b.logger.Debug("detached")
}

// State returns the current state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Handle applies the invalidations of one notification: the notifications
// cache, then the routed prefixes, then the dashboard.
func (b *Bridge) Handle(ctx context.Context, evt NotificationEvent) {
	b.invalidator.InvalidatePrefix(ctx, cache.Prefix(cache.DomainNotifications))

	routed := b.routes.Lookup(evt.Type)
	for _, prefix := range routed {
		b.invalidator.InvalidatePrefix(ctx, prefix)
	}

	b.invalidator.InvalidatePrefix(ctx, cache.Prefix(cache.DomainDashboard))

	if routed == nil {
		eventsTotal.WithLabelValues("unknown").Inc()
		b.logger.Info("unrouted notification", slog.String("type", evt.Type))
		return
	}
	eventsTotal.WithLabelValues("routed").Inc()
	b.logger.Debug("notification routed",
		slog.String("type", NormalizeEventType(evt.Type)),
		slog.Int("prefixes", len(routed)),
	)
}

// Refresh invalidates every cached key of every domain.
func (b *Bridge) Refresh(ctx context.Context) {
	b.invalidator.InvalidateAll(ctx)
	eventsTotal.WithLabelValues("refresh").Inc()
	b.logger.Info("manual refresh")
}
