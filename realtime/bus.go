package realtime

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// NotificationEvent is a server-pushed notification. Only the type matters
// for cache invalidation; the rest of the payload is carried along.
type NotificationEvent struct {
	Type    string
	Payload map[string]any
}

// DecodeNotification parses a JSON notification. The type is read from
// "notification_type", falling back to "type". A payload without either is
// valid and yields an empty type.
func DecodeNotification(data []byte) (NotificationEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return NotificationEvent{}, fmt.Errorf("realtime: decoding notification: %w", err)
	}

	evt := NotificationEvent{Payload: payload}
	for _, field := range []string{"notification_type", "type"} {
		if s, ok := payload[field].(string); ok && s != "" {
			evt.Type = s
			break
		}
	}
	return evt, nil
}

// Bus is the process-wide channel carrying notification events and the
// manual refresh signal. Listeners run synchronously on the publisher's
// goroutine.
type Bus struct {
	nextID        atomic.Uint64
	notifications *xsync.MapOf[uint64, func(NotificationEvent)]
	refreshes     *xsync.MapOf[uint64, func()]
}

// NewBus returns a bus with no listeners.
func NewBus() *Bus {
	return &Bus{
		notifications: xsync.NewMapOf[uint64, func(NotificationEvent)](),
		refreshes:     xsync.NewMapOf[uint64, func()](),
	}
}

// OnNotification registers fn and returns the function that removes it.
func (b *Bus) OnNotification(fn func(NotificationEvent)) (unsubscribe func()) {
	id := b.nextID.Add(1)
	b.notifications.Store(id, fn)
	return func() { b.notifications.Delete(id) }
}

// OnManualRefresh registers fn and returns the function that removes it.
func (b *Bus) OnManualRefresh(fn func()) (unsubscribe func()) {
	id := b.nextID.Add(1)
	b.refreshes.Store(id, fn)
	return func() { b.refreshes.Delete(id) }
}

// PublishNotification delivers evt to every notification listener.
func (b *Bus) PublishNotification(evt NotificationEvent) {
	b.notifications.Range(func(_ uint64, fn func(NotificationEvent)) bool {
		fn(evt)
		return true
	})
}

// RequestRefresh raises the manual refresh signal.
func (b *Bus) RequestRefresh() {
	b.refreshes.Range(func(_ uint64, fn func()) bool {
		fn()
		return true
	})
}

// Listeners returns the number of registered listeners of each signal.
func (b *Bus) Listeners() (notifications, refreshes int) {
	return b.notifications.Size(), b.refreshes.Size()
}
