package calendars

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/goliatone/kronos-sync/cache"
	"github.com/goliatone/kronos-sync/notify"
)

// ErrInvalidYear is returned for a year scope that is not positive.
var ErrInvalidYear = errors.New("calendars: year must be positive")

// API is the calendar service as seen by the hook.
type API interface {
	ListHolidays(ctx context.Context, year int) ([]Holiday, error)
	CreateHoliday(ctx context.Context, year int, form HolidayForm) (Holiday, error)
	UpdateHoliday(ctx context.Context, id string, form HolidayForm) (Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
	ConfirmHoliday(ctx context.Context, id string) (Holiday, error)
	GenerateHolidays(ctx context.Context, year int) ([]Holiday, error)
	CopyHolidays(ctx context.Context, fromYear, toYear int) (int, error)

	ListClosures(ctx context.Context, year int) ([]Closure, error)
	CreateClosure(ctx context.Context, year int, form ClosureForm) (Closure, error)
	UpdateClosure(ctx context.Context, id string, form ClosureForm) (Closure, error)
	DeleteClosure(ctx context.Context, id string) error

	ListExceptions(ctx context.Context, year int) ([]WorkingDayException, error)
	CreateException(ctx context.Context, year int, form ExceptionForm) (WorkingDayException, error)
	UpdateException(ctx context.Context, id string, form ExceptionForm) (WorkingDayException, error)
	DeleteException(ctx context.Context, id string) error
}

// SystemCalendars is the single entry point for reading and changing the
// holidays, closures and working-day exceptions of a year.
//
// Reads go through the shared query cache. Mutations are pessimistic: the
// cache changes only after the server confirms, and then every calendar
// collection of the year is invalidated, whichever one changed.
type SystemCalendars struct {
	api      API
	cache    cache.QueryService
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures SystemCalendars.
type Option func(*SystemCalendars)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SystemCalendars) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates the hook. A nil notifier logs notifications through slog.
func New(api API, queryCache cache.QueryService, notifier notify.Notifier, opts ...Option) *SystemCalendars {
	s := &SystemCalendars{
		api:      api,
		cache:    queryCache,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger)
	}
	s.logger = s.logger.With(slog.String("component", "system_calendars"))
	return s
}

// Holidays reads the holidays of year.
func (s *SystemCalendars) Holidays(ctx context.Context, year int) cache.Result[[]Holiday] {
	if year <= 0 {
		return cache.Result[[]Holiday]{IsError: true, Err: ErrInvalidYear}
	}
	return cache.Query(ctx, s.cache, cache.HolidaysKey(year), func(ctx context.Context) ([]Holiday, error) {
		return s.api.ListHolidays(ctx, year)
	})
}

// Closures reads the closures of year.
func (s *SystemCalendars) Closures(ctx context.Context, year int) cache.Result[[]Closure] {
	if year <= 0 {
		return cache.Result[[]Closure]{IsError: true, Err: ErrInvalidYear}
	}
	return cache.Query(ctx, s.cache, cache.ClosuresKey(year), func(ctx context.Context) ([]Closure, error) {
		return s.api.ListClosures(ctx, year)
	})
}

// Exceptions reads every working-day exception of year, of both types.
func (s *SystemCalendars) Exceptions(ctx context.Context, year int) cache.Result[[]WorkingDayException] {
	if year <= 0 {
		return cache.Result[[]WorkingDayException]{IsError: true, Err: ErrInvalidYear}
	}
	return cache.Query(ctx, s.cache, cache.ExceptionsKey(year), func(ctx context.Context) ([]WorkingDayException, error) {
		return s.api.ListExceptions(ctx, year)
	})
}

// WorkingExceptions reads the exceptions of year and keeps the working ones.
func (s *SystemCalendars) WorkingExceptions(ctx context.Context, year int) cache.Result[[]WorkingDayException] {
	res := s.Exceptions(ctx, year)
	res.Data = WorkingOnly(res.Data)
	return res
}

// Load issues the three reads of year concurrently and waits for all of them.
func (s *SystemCalendars) Load(ctx context.Context, year int) View {
	var (
		wg         conc.WaitGroup
		holidays   cache.Result[[]Holiday]
		closures   cache.Result[[]Closure]
		exceptions cache.Result[[]WorkingDayException]
	)
	wg.Go(func() { holidays = s.Holidays(ctx, year) })
	wg.Go(func() { closures = s.Closures(ctx, year) })
	wg.Go(func() { exceptions = s.Exceptions(ctx, year) })
	wg.Wait()

	return newView(year, holidays, closures, exceptions)
}

// Snapshot returns the cached state of year without fetching, including
// loading flags of reads still in flight.
func (s *SystemCalendars) Snapshot(year int) View {
	return newView(year,
		cache.Peek[[]Holiday](s.cache, cache.HolidaysKey(year)),
		cache.Peek[[]Closure](s.cache, cache.ClosuresKey(year)),
		cache.Peek[[]WorkingDayException](s.cache, cache.ExceptionsKey(year)),
	)
}

// Refetch marks the year stale and loads it again.
func (s *SystemCalendars) Refetch(ctx context.Context, year int) View {
	s.invalidateYear(ctx, year)
	return s.Load(ctx, year)
}

func (s *SystemCalendars) invalidateYear(ctx context.Context, year int) {
	s.cache.Invalidate(ctx, cache.SystemCalendarKeys(year)...)
}

// mutation describes one state-changing action for logging and messages.
type mutation struct {
	name     string
	fallback string
}

type validator interface {
	Validate() error
}

// runMutation calls the API, then on success invalidates the year and
// notifies; on failure it only notifies. The cache is never touched before
// the server answers.
func runMutation[T any](ctx context.Context, s *SystemCalendars, year int, m mutation, form validator, call func(context.Context) (T, error), success func(T) string) (T, error) {
	var zero T
	if year <= 0 {
		s.notifier.Error(ctx, m.fallback)
		return zero, ErrInvalidYear
	}
	if form != nil {
		if err := form.Validate(); err != nil {
			s.notifier.Error(ctx, fmt.Sprintf("%s: %v", m.fallback, err))
			return zero, err
		}
	}

	res, err := call(ctx)
	if err != nil {
		s.logger.Warn("mutation failed",
			slog.String("mutation", m.name),
			slog.Int("year", year),
			slog.Any("error", err),
		)
		s.notifier.Error(ctx, errorMessage(err, m.fallback))
		return zero, err
	}

	s.invalidateYear(ctx, year)
	s.logger.Info("mutation applied", slog.String("mutation", m.name), slog.Int("year", year))
	s.notifier.Success(ctx, success(res))
	return res, nil
}

// errorMessage prefers the server supplied detail over the fallback text.
func errorMessage(err error, fallback string) string {
	var d interface{ ServerDetail() string }
	if errors.As(err, &d) && d.ServerDetail() != "" {
		return d.ServerDetail()
	}
	return fallback
}

type none struct{}

func deleteCall(del func(context.Context, string) error, id string) func(context.Context) (none, error) {
	return func(ctx context.Context) (none, error) {
		return none{}, del(ctx, id)
	}
}

// CreateHoliday adds a holiday to year. On success every system calendar
// key of year is invalidated; on failure the cache is left untouched.
func (s *SystemCalendars) CreateHoliday(ctx context.Context, year int, form HolidayForm) (Holiday, error) {
	return runMutation(ctx, s, year,
		mutation{name: "create_holiday", fallback: "Unable to add the holiday"},
		form,
		func(ctx context.Context) (Holiday, error) { return s.api.CreateHoliday(ctx, year, form) },
		func(h Holiday) string { return fmt.Sprintf("Holiday %q added", h.Name) },
	)
}

// UpdateHoliday replaces holiday id with form.
func (s *SystemCalendars) UpdateHoliday(ctx context.Context, year int, id string, form HolidayForm) (Holiday, error) {
	return runMutation(ctx, s, year,
		mutation{name: "update_holiday", fallback: "Unable to update the holiday"},
		form,
		func(ctx context.Context) (Holiday, error) { return s.api.UpdateHoliday(ctx, id, form) },
		func(h Holiday) string { return fmt.Sprintf("Holiday %q updated", h.Name) },
	)
}

// DeleteHoliday removes holiday id.
func (s *SystemCalendars) DeleteHoliday(ctx context.Context, year int, id string) error {
	_, err := runMutation(ctx, s, year,
		mutation{name: "delete_holiday", fallback: "Unable to delete the holiday"},
		nil,
		deleteCall(s.api.DeleteHoliday, id),
		func(none) string { return "Holiday deleted" },
	)
	return err
}

// ConfirmHoliday marks a generated holiday as reviewed.
func (s *SystemCalendars) ConfirmHoliday(ctx context.Context, year int, id string) (Holiday, error) {
	return runMutation(ctx, s, year,
		mutation{name: "confirm_holiday", fallback: "Unable to confirm the holiday"},
		nil,
		func(ctx context.Context) (Holiday, error) { return s.api.ConfirmHoliday(ctx, id) },
		func(h Holiday) string { return fmt.Sprintf("Holiday %q confirmed", h.Name) },
	)
}

// GenerateHolidays creates the national holidays of year and returns how
// many were created.
func (s *SystemCalendars) GenerateHolidays(ctx context.Context, year int) (int, error) {
	return runMutation(ctx, s, year,
		mutation{name: "generate_holidays", fallback: "Unable to generate the national holidays"},
		nil,
		func(ctx context.Context) (int, error) {
			created, err := s.api.GenerateHolidays(ctx, year)
			return len(created), err
		},
		func(n int) string { return fmt.Sprintf("%d national holidays generated for %d", n, year) },
	)
}

// CopyHolidays copies the holidays of year-1 into year and returns how many
// were copied. The service skips holidays already present in year.
func (s *SystemCalendars) CopyHolidays(ctx context.Context, year int) (int, error) {
	return runMutation(ctx, s, year,
		mutation{name: "copy_holidays", fallback: "Unable to copy the holidays from the previous year"},
		nil,
		func(ctx context.Context) (int, error) { return s.api.CopyHolidays(ctx, year-1, year) },
		func(n int) string { return fmt.Sprintf("%d holidays copied from %d", n, year-1) },
	)
}

// CreateClosure schedules a closure in year. The form must not set both
// pay flags.
func (s *SystemCalendars) CreateClosure(ctx context.Context, year int, form ClosureForm) (Closure, error) {
	return runMutation(ctx, s, year,
		mutation{name: "create_closure", fallback: "Unable to schedule the closure"},
		form,
		func(ctx context.Context) (Closure, error) { return s.api.CreateClosure(ctx, year, form) },
		func(c Closure) string {
			return fmt.Sprintf("Closure %q scheduled from %s to %s", c.Name, c.StartDate, c.EndDate)
		},
	)
}

// UpdateClosure replaces closure id with form.
func (s *SystemCalendars) UpdateClosure(ctx context.Context, year int, id string, form ClosureForm) (Closure, error) {
	return runMutation(ctx, s, year,
		mutation{name: "update_closure", fallback: "Unable to update the closure"},
		form,
		func(ctx context.Context) (Closure, error) { return s.api.UpdateClosure(ctx, id, form) },
		func(c Closure) string { return fmt.Sprintf("Closure %q updated", c.Name) },
	)
}

// DeleteClosure removes closure id.
func (s *SystemCalendars) DeleteClosure(ctx context.Context, year int, id string) error {
	_, err := runMutation(ctx, s, year,
		mutation{name: "delete_closure", fallback: "Unable to delete the closure"},
		nil,
		deleteCall(s.api.DeleteClosure, id),
		func(none) string { return "Closure deleted" },
	)
	return err
}

// CreateException adds a working-day exception to year.
func (s *SystemCalendars) CreateException(ctx context.Context, year int, form ExceptionForm) (WorkingDayException, error) {
	return runMutation(ctx, s, year,
		mutation{name: "create_exception", fallback: "Unable to add the working day exception"},
		form,
		func(ctx context.Context) (WorkingDayException, error) { return s.api.CreateException(ctx, year, form) },
		func(e WorkingDayException) string { return fmt.Sprintf("Working day exception added for %s", e.Date) },
	)
}

// UpdateException replaces exception id with form.
func (s *SystemCalendars) UpdateException(ctx context.Context, year int, id string, form ExceptionForm) (WorkingDayException, error) {
	return runMutation(ctx, s, year,
		mutation{name: "update_exception", fallback: "Unable to update the working day exception"},
		form,
		func(ctx context.Context) (WorkingDayException, error) { return s.api.UpdateException(ctx, id, form) },
		func(e WorkingDayException) string { return fmt.Sprintf("Working day exception for %s updated", e.Date) },
	)
}

// DeleteException removes exception id.
func (s *SystemCalendars) DeleteException(ctx context.Context, year int, id string) error {
	_, err := runMutation(ctx, s, year,
		mutation{name: "delete_exception", fallback: "Unable to delete the working day exception"},
		nil,
		deleteCall(s.api.DeleteException, id),
		func(none) string { return "Working day exception deleted" },
	)
	return err
}
