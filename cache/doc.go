// Package cache provides the query key registry and the shared read cache
// used by the KRONOS data hooks.
//
// # Keys
//
// A Key is a tuple: a domain followed by scope parts.
//
//	cache.KeyFor("leaves", 2025)                           // leaves::2025
//	cache.KeyFor(cache.DomainSystemCalendars, "holidays", 2025)
//
// KeyFor is deterministic: the same inputs always produce equal keys, maps
// are serialized with sorted keys and structs by exported field. Prefix
// matching works on whole segments, so invalidating Prefix("leaves") reaches
// leaves::2025 and leaves::2026 but never leaves_history::2025.
//
// # Reads
//
// QueryService is a read-through cache shared by every hook in the process:
//
//	res := cache.Query(ctx, svc, cache.HolidaysKey(2025), func(ctx context.Context) ([]calendars.Holiday, error) {
//		return api.ListHolidays(ctx, 2025)
//	})
//	if res.IsError {
//		// res.Data still holds the last known value, if any
//	}
//
// Values stay fresh for Config.StaleTime. After that the cached value keeps
// being served while a background refresh runs. Concurrent reads of the same
// key share one call to the source.
//
// # Invalidation
//
// Invalidate, InvalidatePrefix and InvalidateAll mark entries stale. They
// never drop the last known value, so a failing refetch still has something
// to show. Marking an already stale entry is a no-op, which makes mutation
// and realtime invalidations safe to race.
//
// Tests can construct isolated services with NewQueryService; there is no
// package level cache instance.
package cache
