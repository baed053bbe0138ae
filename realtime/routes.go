package realtime

import "github.com/goliatone/kronos-sync/cache"

// Routes maps a normalized event type to the key prefixes it invalidates.
type Routes map[string][]cache.Key

// Lookup returns the prefixes routed for eventType, or nil when the type is
// unknown. The type is normalized first.
func (r Routes) Lookup(eventType string) []cache.Key {
	prefixes, ok := r[NormalizeEventType(eventType)]
	if !ok {
		return nil
	}
	return append([]cache.Key(nil), prefixes...)
}

// Known reports whether eventType has a route.
func (r Routes) Known(eventType string) bool {
	_, ok := r[NormalizeEventType(eventType)]
	return ok
}

// With returns a copy of r with eventType routed to prefixes.
func (r Routes) With(eventType string, prefixes ...cache.Key) Routes {
	out := make(Routes, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[NormalizeEventType(eventType)] = prefixes
	return out
}

func prefixes(domains ...string) []cache.Key {
	out := make([]cache.Key, len(domains))
	for i, d := range domains {
		out[i] = cache.Prefix(d)
	}
	return out
}

// DefaultRoutes is the routing table of the KRONOS notification types.
// Notifications and dashboard caches are not listed: every event
// invalidates them.
func DefaultRoutes() Routes {
	return Routes{
		"leave_request_created":   prefixes(cache.DomainLeaves, cache.DomainApprovals),
		"leave_request_submitted": prefixes(cache.DomainLeaves, cache.DomainApprovals),
		"leave_request_approved":  prefixes(cache.DomainLeaves, cache.DomainBalances, cache.DomainCalendar),
		"leave_request_rejected":  prefixes(cache.DomainLeaves, cache.DomainBalances),
		"leave_request_cancelled": prefixes(cache.DomainLeaves, cache.DomainBalances, cache.DomainCalendar),
		"leave_balance_updated":   prefixes(cache.DomainBalances),

		"expense_report_submitted": prefixes(cache.DomainExpenses, cache.DomainApprovals),
		"expense_report_approved":  prefixes(cache.DomainExpenses),
		"expense_report_rejected":  prefixes(cache.DomainExpenses),
		"expense_report_paid":      prefixes(cache.DomainExpenses),

		"trip_request_submitted": prefixes(cache.DomainTrips, cache.DomainApprovals),
		"trip_request_approved":  prefixes(cache.DomainTrips, cache.DomainCalendar),
		"trip_request_rejected":  prefixes(cache.DomainTrips),

		"approval_requested": prefixes(cache.DomainApprovals),
		"approval_completed": prefixes(cache.DomainApprovals),

		"calendar_updated": prefixes(cache.DomainSystemCalendars, cache.DomainCalendar),
		"holiday_created":  prefixes(cache.DomainSystemCalendars, cache.DomainCalendar),
		"closure_created":  prefixes(cache.DomainSystemCalendars, cache.DomainCalendar, cache.DomainBalances),

		"user_updated": prefixes(cache.DomainUsers),
	}
}
