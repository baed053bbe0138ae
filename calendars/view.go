package calendars

import (
	"sort"

	"github.com/goliatone/kronos-sync/cache"
)

// View is everything a calendar page needs for one year. Derived fields are
// recomputed from the cached collections on every call and never written
// back to the cache.
type View struct {
	Year          int
	Holidays      cache.Result[[]Holiday]
	Closures      cache.Result[[]Closure]
	AllExceptions cache.Result[[]WorkingDayException]
	// Exceptions holds only working-type exceptions.
	Exceptions cache.Result[[]WorkingDayException]
	IsLoading  bool
}

func newView(year int, holidays cache.Result[[]Holiday], closures cache.Result[[]Closure], exceptions cache.Result[[]WorkingDayException]) View {
	working := exceptions
	working.Data = WorkingOnly(exceptions.Data)

	return View{
		Year:          year,
		Holidays:      holidays,
		Closures:      closures,
		AllExceptions: exceptions,
		Exceptions:    working,
		IsLoading:     holidays.IsLoading || closures.IsLoading || exceptions.IsLoading,
	}
}

// IsError reports whether any of the three reads failed.
func (v View) IsError() bool {
	return v.Holidays.IsError || v.Closures.IsError || v.AllExceptions.IsError
}

// Errors returns the read errors, if any.
func (v View) Errors() []error {
	var errs []error
	for _, err := range []error{v.Holidays.Err, v.Closures.Err, v.AllExceptions.Err} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// WorkingOnly keeps the exceptions of type working, in order, unchanged.
func WorkingOnly(exceptions []WorkingDayException) []WorkingDayException {
	if exceptions == nil {
		return nil
	}
	out := make([]WorkingDayException, 0, len(exceptions))
	for _, e := range exceptions {
		if e.Type == ExceptionWorking {
			out = append(out, e)
		}
	}
	return out
}

// FilterByScope returns the holidays matching scope. Local and company
// holidays match each other's filter. An empty scope returns everything.
func FilterByScope(holidays []Holiday, scope Scope) []Holiday {
	if scope == "" {
		return holidays
	}
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.Scope == scope || (scope.IsLocalLike() && h.Scope.IsLocalLike()) {
			out = append(out, h)
		}
	}
	return out
}

// SortByDate returns a copy of holidays ordered by date, then name.
func SortByDate(holidays []Holiday) []Holiday {
	out := append([]Holiday(nil), holidays...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Unconfirmed returns the holidays still waiting for confirmation.
func Unconfirmed(holidays []Holiday) []Holiday {
	var out []Holiday
	for _, h := range holidays {
		if !h.IsConfirmed {
			out = append(out, h)
		}
	}
	return out
}

// ClosuresOn returns the closures that cover date.
func ClosuresOn(closures []Closure, date string) []Closure {
	var out []Closure
	for _, c := range closures {
		if c.Covers(date) {
			out = append(out, c)
		}
	}
	return out
}
