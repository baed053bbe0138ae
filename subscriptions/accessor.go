// Package subscriptions fetches the iCal subscription links of a year once
// and keeps them for the life of the owning view.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/kronos-sync/calendars"
	"github.com/goliatone/kronos-sync/notify"
)

// Source provides the subscription links and ICS files.
type Source interface {
	SubscriptionURLs(ctx context.Context, year int) (calendars.URLSet, error)
	DownloadICS(ctx context.Context, year int, kind calendars.ICSKind, w io.Writer) (int64, error)
}

// State describes the memo for one year.
type State int

const (
	// StateIdle means nothing was requested yet, or the last attempt was
	// for another year.
	StateIdle State = iota
	StateLoading
	StateReady
	// StateFailed means the last attempt failed; the next Fetch retries.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

const (
	fetchFailedMessage    = "Unable to load the calendar subscription links"
	downloadFailedMessage = "Unable to download the calendar"
)

// Accessor memoizes the URL set of the current year. Only one year is kept:
// moving to another year drops the previous memo. Failures are never
// memoized.
type Accessor struct {
	source   Source
	notifier notify.Notifier
	logger   *slog.Logger

	memo  *lru.Cache[int, calendars.URLSet]
	group singleflight.Group

	mu       sync.Mutex
	loading  map[int]bool
	failedAt int
	// current is the most recently requested year.
	current  int
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Accessor. A nil notifier logs notifications through slog.
func New(source Source, notifier notify.Notifier, opts ...Option) *Accessor {
	// size 1 never fails
	memo, _ := lru.New[int, calendars.URLSet](1)

	a := &Accessor{
		source:   source,
		notifier: notifier,
		logger:   slog.Default(),
		memo:     memo,
		loading:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.notifier == nil {
		a.notifier = notify.NewLogNotifier(a.logger)
	}
	a.logger = a.logger.With(slog.String("component", "subscriptions"))
	return a
}

// Fetch returns the URL set of year, calling the source only when year is
// not memoized. On failure it notifies the user once per request and returns
// nil; nil means "not available", not "still loading". Concurrent calls for
// the same year share one request.
func (a *Accessor) Fetch(ctx context.Context, year int) *calendars.URLSet {
	a.mu.Lock()
	a.current = year
	a.mu.Unlock()

	if set, ok := a.memo.Get(year); ok {
		return &set
	}

	v, err, _ := a.group.Do(strconv.Itoa(year), func() (any, error) {
		if set, ok := a.memo.Get(year); ok {
			return set, nil
		}

		a.setLoading(year, true)
		defer a.setLoading(year, false)

		set, err := a.load(ctx, year)
		if err != nil {
			a.logger.Warn("subscription urls fetch failed", slog.Int("year", year), slog.Any("error", err))
			a.notifier.Error(ctx, detailOr(err, fetchFailedMessage))
			return nil, err
		}
		return set, nil
	})
	if err != nil {
		return nil
	}

	set := v.(calendars.URLSet)
	return &set
}

// load calls the source and memoizes the result while year is still the
// most recently requested one.
func (a *Accessor) load(ctx context.Context, year int) (calendars.URLSet, error) {
	if year <= 0 {
		return calendars.URLSet{}, calendars.ErrInvalidYear
	}

	set, err := a.source.SubscriptionURLs(ctx, year)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.failedAt = year
		return calendars.URLSet{}, err
	}
	if a.failedAt == year {
		a.failedAt = 0
	}
	if a.current != year {
		a.logger.Debug("dropping subscription urls of a previous year", slog.Int("year", year))
		return set, nil
	}
	a.memo.Add(year, set)
	return set, nil
}

// State reports the memo state of year without fetching.
func (a *Accessor) State(year int) State {
	if a.memo.Contains(year) {
		return StateReady
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.loading[year]:
		return StateLoading
	case a.failedAt == year && year != 0:
		return StateFailed
	default:
		return StateIdle
	}
}

// Reset drops the memo, for example when the owning view closes.
func (a *Accessor) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memo.Purge()
	a.failedAt = 0
	a.current = 0
}

// Download writes the ICS file of kind for year into w. It never touches the
// memo or the query cache.
func (a *Accessor) Download(ctx context.Context, year int, kind calendars.ICSKind, w io.Writer) error {
	if !kind.Valid() {
		err := fmt.Errorf("subscriptions: unknown calendar kind %q", kind)
		a.notifier.Error(ctx, downloadFailedMessage)
		return err
	}
	if year <= 0 {
		a.notifier.Error(ctx, downloadFailedMessage)
		return calendars.ErrInvalidYear
	}

	n, err := a.source.DownloadICS(ctx, year, kind, w)
	if err != nil {
		a.logger.Warn("ics download failed",
			slog.Int("year", year),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		a.notifier.Error(ctx, detailOr(err, downloadFailedMessage))
		return err
	}
	a.logger.Debug("ics downloaded", slog.Int("year", year), slog.String("kind", string(kind)), slog.Int64("bytes", n))
	return nil
}

func (a *Accessor) setLoading(year int, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v {
		a.loading[year] = true
	} else {
		delete(a.loading, year)
	}
}

func detailOr(err error, fallback string) string {
	var d interface{ ServerDetail() string }
	if errors.As(err, &d) && d.ServerDetail() != "" {
		return d.ServerDetail()
	}
	return fallback
}
