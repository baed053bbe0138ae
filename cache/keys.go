package cache

// Domain names used as the first key segment.
const (
	DomainLeaves          = "leaves"
	DomainBalances        = "balances"
	DomainCalendar        = "calendar"
	DomainSystemCalendars = "system_calendars"
	DomainExpenses        = "expenses"
	DomainTrips           = "trips"
	DomainApprovals       = "approvals"
	DomainNotifications   = "notifications"
	DomainDashboard       = "dashboard"
	DomainUsers           = "users"
)

// Sub-resources of the system calendars domain.
const (
	ResourceHolidays   = "holidays"
	ResourceClosures   = "closures"
	ResourceExceptions = "exceptions"
)

// Prefix returns the key that matches every scoped variant of domain.
func Prefix(domain string) Key {
	return Key{domain}
}

// HolidaysKey identifies the holiday list of a year.
func HolidaysKey(year int) Key {
	return KeyFor(DomainSystemCalendars, ResourceHolidays, year)
}

// ClosuresKey identifies the closure list of a year.
func ClosuresKey(year int) Key {
	return KeyFor(DomainSystemCalendars, ResourceClosures, year)
}

// ExceptionsKey identifies the working-day exception list of a year.
func ExceptionsKey(year int) Key {
	return KeyFor(DomainSystemCalendars, ResourceExceptions, year)
}

// SystemCalendarKeys returns every sub-resource key of a year. They are
// fetched and invalidated together.
func SystemCalendarKeys(year int) []Key {
	return []Key{HolidaysKey(year), ClosuresKey(year), ExceptionsKey(year)}
}

// LeavesKey identifies the leave requests of a year.
func LeavesKey(year int) Key {
	return KeyFor(DomainLeaves, year)
}

// BalancesKey identifies the leave balances of a year.
func BalancesKey(year int) Key {
	return KeyFor(DomainBalances, year)
}
