// Package realtime keeps cached data in step with server-pushed events.
//
// A Bus carries two signals: notification events and a parameterless manual
// refresh. A Bridge attached to the bus turns each notification into
// prefix invalidations through a static routing table:
//
//	bus := realtime.NewBus()
//	bridge := realtime.NewBridge(queryCache, realtime.DefaultRoutes(), logger)
//	if err := bridge.Attach(bus); err != nil {
//		return err
//	}
//	defer bridge.Detach()
//
// The notification and dashboard caches are invalidated for every event,
// known or not. The manual refresh invalidates everything.
package realtime
