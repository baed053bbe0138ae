package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goliatone/kronos-sync/calendars"
	"github.com/goliatone/kronos-sync/internal/config"
	"github.com/goliatone/kronos-sync/pkg/di"
	"github.com/goliatone/kronos-sync/pkg/testsupport/calendarfake"
	"github.com/goliatone/kronos-sync/realtime"
)

var errUsage = errors.New("usage")

type environment struct {
	cfg       *config.Config
	logger    *slog.Logger
	container *di.Container
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

type command struct {
	summary string
	// local commands do not talk to the calendar service.
	local bool
	run   func(ctx context.Context, env *environment, args []string) error
}

var commandOrder = []string{
	"holidays", "closures", "exceptions",
	"add-holiday", "confirm-holiday", "delete-holiday", "generate", "copy",
	"add-closure", "delete-closure",
	"add-exception", "delete-exception",
	"urls", "ics", "watch", "serve-fake",
}

var commands = map[string]command{
	"holidays":         {summary: "list the holidays of a year", run: listHolidays},
	"closures":         {summary: "list the closures of a year", run: listClosures},
	"exceptions":       {summary: "list the working-day exceptions of a year", run: listExceptions},
	"add-holiday":      {summary: "add a holiday", run: addHoliday},
	"confirm-holiday":  {summary: "confirm a holiday", run: confirmHoliday},
	"delete-holiday":   {summary: "delete a holiday", run: deleteHoliday},
	"generate":         {summary: "generate the national holidays of a year", run: generate},
	"copy":             {summary: "copy the holidays of the previous year", run: copyHolidays},
	"add-closure":      {summary: "schedule a closure", run: addClosure},
	"delete-closure":   {summary: "delete a closure", run: deleteClosure},
	"add-exception":    {summary: "add a working-day exception", run: addException},
	"delete-exception": {summary: "delete a working-day exception", run: deleteException},
	"urls":             {summary: "print the iCal subscription links of a year", run: urls},
	"ics":              {summary: "download an ICS file", run: ics},
	"watch":            {summary: "apply JSON notifications read from stdin to the cache", run: watch},
	"serve-fake":       {summary: "serve an in-memory calendar service", local: true, run: serveFake},
}

func newFlagSet(env *environment, name string) (*flag.FlagSet, *int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	year := fs.Int("year", time.Now().Year(), "calendar year")
	return fs, year
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func requireID(fs *flag.FlagSet, args []string) (string, error) {
	id := fs.String("id", "", "record id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if *id == "" {
		fmt.Fprintln(fs.Output(), "-id is required")
		return "", errUsage
	}
	return *id, nil
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	tw.Flush()
}

func listHolidays(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "holidays")
	scope := fs.String("scope", "", "filter by scope (national, regional, local, company)")
	if err := parse(fs, args); err != nil {
		return err
	}

	res := env.container.Calendars().Holidays(ctx, *year)
	if res.IsError {
		return res.Err
	}
	holidays := calendars.SortByDate(calendars.FilterByScope(res.Data, calendars.Scope(*scope)))
	table(env.stdout, "ID\tDATE\tNAME\tSCOPE\tCONFIRMED", func(tw *tabwriter.Writer) {
		for _, h := range holidays {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", h.ID, h.Date, h.Name, h.Scope, h.IsConfirmed)
		}
	})
	return nil
}

func listClosures(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "closures")
	if err := parse(fs, args); err != nil {
		return err
	}

	res := env.container.Calendars().Closures(ctx, *year)
	if res.IsError {
		return res.Err
	}
	table(env.stdout, "ID\tNAME\tFROM\tTO\tDAYS\tTYPE\tPAY", func(tw *tabwriter.Writer) {
		for _, c := range res.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, c.StartDate, c.EndDate, c.Days(), c.Type, c.Pay)
		}
	})
	return nil
}

func listExceptions(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "exceptions")
	all := fs.Bool("all", false, "include non-working exceptions")
	if err := parse(fs, args); err != nil {
		return err
	}

	hook := env.container.Calendars()
	res := hook.WorkingExceptions(ctx, *year)
	if *all {
		res = hook.Exceptions(ctx, *year)
	}
	if res.IsError {
		return res.Err
	}
	table(env.stdout, "ID\tDATE\tTYPE\tREASON", func(tw *tabwriter.Writer) {
		for _, e := range res.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Type, e.Reason)
		}
	})
	return nil
}

func addHoliday(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "add-holiday")
	var form calendars.HolidayForm
	fs.StringVar(&form.Date, "date", "", "date (YYYY-MM-DD)")
	fs.StringVar(&form.Name, "name", "", "holiday name")
	scope := fs.String("scope", string(calendars.ScopeNational), "scope")
	if err := parse(fs, args); err != nil {
		return err
	}
	form.Scope = calendars.Scope(*scope)

	h, err := env.container.Calendars().CreateHoliday(ctx, *year, form)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, h.ID)
	return nil
}

func confirmHoliday(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "confirm-holiday")
	id, err := requireID(fs, args)
	if err != nil {
		return err
	}
	_, err = env.container.Calendars().ConfirmHoliday(ctx, *year, id)
	return err
}

func deleteHoliday(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "delete-holiday")
	id, err := requireID(fs, args)
	if err != nil {
		return err
	}
	return env.container.Calendars().DeleteHoliday(ctx, *year, id)
}

func generate(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "generate")
	if err := parse(fs, args); err != nil {
		return err
	}
	n, err := env.container.Calendars().GenerateHolidays(ctx, *year)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, n)
	return nil
}

func copyHolidays(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "copy")
	if err := parse(fs, args); err != nil {
		return err
	}
	n, err := env.container.Calendars().CopyHolidays(ctx, *year)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, n)
	return nil
}

func addClosure(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "add-closure")
	var form calendars.ClosureForm
	fs.StringVar(&form.Name, "name", "", "closure name")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.StringVar(&form.StartDate, "start", "", "first day (YYYY-MM-DD)")
	fs.StringVar(&form.EndDate, "end", "", "last day (YYYY-MM-DD)")
	closureType := fs.String("type", string(calendars.ClosureTotal), "total or partial")
	pay := fs.String("pay", string(calendars.PayNone), "none, paid or consumes_leave")
	if err := parse(fs, args); err != nil {
		return err
	}
	form.ClosureType = calendars.ClosureType(*closureType)
	form.SetPayPolicy(calendars.PayPolicy(*pay))

	c, err := env.container.Calendars().CreateClosure(ctx, *year, form)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, c.ID)
	return nil
}

func deleteClosure(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "delete-closure")
	id, err := requireID(fs, args)
	if err != nil {
		return err
	}
	return env.container.Calendars().DeleteClosure(ctx, *year, id)
}

func addException(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "add-exception")
	var form calendars.ExceptionForm
	fs.StringVar(&form.Date, "date", "", "date (YYYY-MM-DD)")
	fs.StringVar(&form.Reason, "reason", "", "reason")
	typ := fs.String("type", string(calendars.ExceptionWorking), "working or non_working")
	if err := parse(fs, args); err != nil {
		return err
	}
	form.ExceptionType = calendars.ExceptionType(*typ)

	e, err := env.container.Calendars().CreateException(ctx, *year, form)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, e.ID)
	return nil
}

func deleteException(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "delete-exception")
	id, err := requireID(fs, args)
	if err != nil {
		return err
	}
	return env.container.Calendars().DeleteException(ctx, *year, id)
}

func urls(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "urls")
	if err := parse(fs, args); err != nil {
		return err
	}

	set := env.container.Subscriptions().Fetch(ctx, *year)
	if set == nil {
		return errors.New("subscription links not available")
	}
	table(env.stdout, "CALENDAR\tURL\tDESCRIPTION", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "holidays\t%s\t%s\n", set.Holidays.URL, set.Holidays.Description)
		fmt.Fprintf(tw, "closures\t%s\t%s\n", set.Closures.URL, set.Closures.Description)
		fmt.Fprintf(tw, "combined\t%s\t%s\n", set.Combined.URL, set.Combined.Description)
	})
	return nil
}

func ics(ctx context.Context, env *environment, args []string) error {
	fs, year := newFlagSet(env, "ics")
	kind := fs.String("kind", string(calendars.ICSCombined), "holidays, closures or combined")
	out := fs.String("out", "", "output file (default stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}

	w := env.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return env.container.Subscriptions().Download(ctx, *year, calendars.ICSKind(*kind), w)
}

// watch applies notifications to the cache: one JSON object per line, or
// the word "refresh" for a manual refresh.
func watch(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	if err := parse(fs, args); err != nil {
		return err
	}

	c := env.container
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Close()

	routes := realtime.DefaultRoutes()
	scanner := bufio.NewScanner(env.stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "refresh":
			c.Bus().RequestRefresh()
			fmt.Fprintln(env.stdout, "refresh: all keys invalidated")
			continue
		}

		evt, err := realtime.DecodeNotification([]byte(line))
		if err != nil {
			env.logger.Warn("skipping malformed notification", slog.Any("error", err))
			continue
		}
		c.Bus().PublishNotification(evt)

		routed := routes.Lookup(evt.Type)
		names := make([]string, 0, len(routed))
		for _, k := range routed {
			names = append(names, k.String())
		}
		fmt.Fprintf(env.stdout, "%s: %s\n", displayType(evt.Type), strings.Join(names, ", "))
	}
	return scanner.Err()
}

func displayType(t string) string {
	if t == "" {
		return "(untyped)"
	}
	return realtime.NormalizeEventType(t)
}

func serveFake(ctx context.Context, env *environment, args []string) error {
	fs := flag.NewFlagSet("serve-fake", flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	addr := fs.String("addr", ":8000", "listen address")
	seed := fs.Int("seed-year", 0, "generate the national holidays of this year on start")
	if err := parse(fs, args); err != nil {
		return err
	}

	fake := calendarfake.New()
	fake.SetBaseURL("http://localhost" + *addr)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		env.logger.Info("calendar service listening", slog.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if *seed > 0 {
		go seedYear(ctx, env, *addr, *seed)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seedYear(ctx context.Context, env *environment, addr string, year int) {
	cfg := *env.cfg
	cfg.APIURL = "http://localhost" + addr
	container, err := di.NewContainer(cfg, di.WithLogger(env.logger))
	if err != nil {
		env.logger.Warn("seeding skipped", slog.Any("error", err))
		return
	}
	// the listener may not be ready yet; reads retry but mutations do not
	time.Sleep(200 * time.Millisecond)
	if _, err := container.Calendars().GenerateHolidays(ctx, year); err != nil {
		env.logger.Warn("seeding failed", slog.Any("error", err))
	}
}
