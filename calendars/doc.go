// Package calendars manages the company calendar of a year: public and
// company holidays, planned closures and working-day exceptions.
//
// SystemCalendars reads the three collections through the shared query
// cache and performs every mutation against the calendar API. A successful
// mutation marks all three collections of the affected year stale, so any
// view of that year refetches on its next read. Failures are reported to a
// notify.Notifier, preferring the server's detail message.
package calendars
