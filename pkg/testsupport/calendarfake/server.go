// Package calendarfake is an in-memory KRONOS calendar service for tests and
// examples. It speaks the same HTTP API as the real service.
package calendarfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/kronos-sync/calendars"
)

const dateLayout = calendars.DateLayout

type failure struct {
	status int
	detail string
}

// Server holds calendar records in memory.
type Server struct {
	mu         sync.Mutex
	holidays   map[string]calendars.Holiday
	closures   map[string]calendars.Closure
	exceptions map[string]calendars.WorkingDayException
	failures   []failure
	requests   map[string]int
	baseURL    string
	delay      time.Duration
	router     chi.Router
}

// New returns an empty service.
func New() *Server {
	s := &Server{
		holidays:   make(map[string]calendars.Holiday),
		closures:   make(map[string]calendars.Closure),
		exceptions: make(map[string]calendars.WorkingDayException),
		requests:   make(map[string]int),
		baseURL:    "http://localhost:8000",
	}
	s.router = s.routes()
	return s
}

// NewTestServer starts s behind an httptest.Server that is closed when the
// test ends.
func NewTestServer(t testing.TB) (*Server, *httptest.Server) {
	t.Helper()

	s := New()
	ts := httptest.NewServer(s.Handler())
	s.SetBaseURL(ts.URL)
	t.Cleanup(ts.Close)
	return s, ts
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetBaseURL sets the public URL used to build subscription links.
func (s *Server) SetBaseURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = u
}

// SetDelay makes every request wait d before being served.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// FailNext makes the next request answer status with detail. Calls queue up.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, detail: detail})
}

// Requests returns how many requests hit method and path, for example
// Requests("GET", "/api/v1/calendar/holidays").
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// SeedHoliday stores h, assigning an ID and year when missing.
func (s *Server) SeedHoliday(h calendars.Holiday) calendars.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Year == 0 {
		h.Year = yearOf(h.Date)
	}
	s.holidays[h.ID] = h
	return h
}

// SeedClosure stores c, assigning an ID and year when missing.
func (s *Server) SeedClosure(c calendars.Closure) calendars.Closure {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Year == 0 {
		c.Year = yearOf(c.StartDate)
	}
	s.closures[c.ID] = c
	return c
}

// SeedException stores e, assigning an ID and year when missing.
func (s *Server) SeedException(e calendars.WorkingDayException) calendars.WorkingDayException {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Year == 0 {
		e.Year = yearOf(e.Date)
	}
	s.exceptions[e.ID] = e
	return e
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.track)

	r.Route("/api/v1/calendar", func(r chi.Router) {
		r.Get("/holidays", s.listHolidays)
		r.Post("/holidays", s.createHoliday)
		r.Post("/holidays/generate", s.generateHolidays)
		r.Post("/holidays/copy", s.copyHolidays)
		r.Put("/holidays/{id}", s.updateHoliday)
		r.Delete("/holidays/{id}", s.deleteHoliday)
		r.Post("/holidays/{id}/confirm", s.confirmHoliday)

		r.Get("/closures", s.listClosures)
		r.Post("/closures", s.createClosure)
		r.Put("/closures/{id}", s.updateClosure)
		r.Delete("/closures/{id}", s.deleteClosure)

		r.Get("/exceptions", s.listExceptions)
		r.Post("/exceptions", s.createException)
		r.Put("/exceptions/{id}", s.updateException)
		r.Delete("/exceptions/{id}", s.deleteException)

		r.Get("/subscription-urls", s.subscriptionURLs)
		r.Get("/ics/{kind}", s.ics)
	})
	return r
}

// track counts requests by path and serves queued failures.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		delay := s.delay
		var fail *failure
		if len(s.failures) > 0 {
			f := s.failures[0]
			s.failures = s.failures[1:]
			fail = &f
		}
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail != nil {
			writeDetail(w, fail.status, fail.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listHolidays(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]calendars.Holiday, 0)
	for _, h := range s.holidays {
		if h.Year == year {
			out = append(out, h)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, calendars.SortByDate(out))
}

type holidayRequest struct {
	calendars.HolidayForm
	Year int `json:"year"`
}

func (s *Server) createHoliday(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := req.HolidayForm.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Year == 0 {
		req.Year = yearOf(req.Date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holidays {
		if h.Date == req.Date && h.Scope == req.Scope {
			writeDetail(w, http.StatusConflict, "Holiday already exists for this date")
			return
		}
	}
	h := calendars.Holiday{
		ID:    uuid.NewString(),
		Date:  req.Date,
		Name:  req.Name,
		Scope: req.Scope,
		Year:  req.Year,
	}
	s.holidays[h.ID] = h
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) updateHoliday(w http.ResponseWriter, r *http.Request) {
	var form calendars.HolidayForm
	if !readJSON(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holidays[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Holiday not found")
		return
	}
	h.Date, h.Name, h.Scope, h.Year = form.Date, form.Name, form.Scope, yearOf(form.Date)
	s.holidays[h.ID] = h
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) deleteHoliday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.holidays[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Holiday not found")
		return
	}
	delete(s.holidays, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) confirmHoliday(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holidays[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Holiday not found")
		return
	}
	h.IsConfirmed = true
	s.holidays[h.ID] = h
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) generateHolidays(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year int `json:"year"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Year <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "year must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	national := nationalHolidays(req.Year)
	created := make([]calendars.Holiday, 0, len(national))
	for _, date := range sortedDates(national) {
		if s.hasHolidayLocked(date, calendars.ScopeNational) {
			continue
		}
		h := calendars.Holiday{
			ID:          uuid.NewString(),
			Date:        date,
			Name:        national[date],
			Scope:       calendars.ScopeNational,
			IsConfirmed: true,
			Year:        req.Year,
		}
		s.holidays[h.ID] = h
		created = append(created, h)
	}
	writeJSON(w, http.StatusCreated, created)
}

// copyHolidays moves every holiday of the source year to the same day of the
// target year, skipping those already present.
func (s *Server) copyHolidays(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceYear int `json:"source_year"`
		TargetYear int `json:"target_year"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.SourceYear <= 0 || req.TargetYear <= 0 || req.SourceYear == req.TargetYear {
		writeDetail(w, http.StatusUnprocessableEntity, "source_year and target_year must be distinct positive years")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var sources []calendars.Holiday
	for _, h := range s.holidays {
		if h.Year == req.SourceYear {
			sources = append(sources, h)
		}
	}

	copied := 0
	for _, h := range calendars.SortByDate(sources) {
		d, err := time.Parse(dateLayout, h.Date)
		if err != nil {
			continue
		}
		date := formatDate(req.TargetYear, int(d.Month()), d.Day())
		if s.hasHolidayLocked(date, h.Scope) {
			continue
		}
		c := calendars.Holiday{
			ID:    uuid.NewString(),
			Date:  date,
			Name:  h.Name,
			Scope: h.Scope,
			Year:  req.TargetYear,
		}
		s.holidays[c.ID] = c
		copied++
	}
	writeJSON(w, http.StatusOK, map[string]int{"copied": copied})
}

func (s *Server) hasHolidayLocked(date string, scope calendars.Scope) bool {
	for _, h := range s.holidays {
		if h.Date == date && h.Scope == scope {
			return true
		}
	}
	return false
}

func (s *Server) listClosures(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]calendars.Closure, 0)
	for _, c := range s.closures {
		if c.Year == year {
			out = append(out, c)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

type closureRequest struct {
	calendars.ClosureForm
	Year int `json:"year"`
}

func checkClosure(w http.ResponseWriter, form calendars.ClosureForm) bool {
	if err := form.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	if form.EndDate < form.StartDate {
		writeDetail(w, http.StatusUnprocessableEntity, "end_date must not be before start_date")
		return false
	}
	return true
}

func closureFrom(id string, year int, form calendars.ClosureForm) calendars.Closure {
	if year == 0 {
		year = yearOf(form.StartDate)
	}
	return calendars.Closure{
		ID:          id,
		Name:        form.Name,
		Description: form.Description,
		StartDate:   form.StartDate,
		EndDate:     form.EndDate,
		Type:        form.ClosureType,
		Pay:         form.PayPolicy(),
		Year:        year,
	}
}

func (s *Server) createClosure(w http.ResponseWriter, r *http.Request) {
	var req closureRequest
	if !readJSON(w, r, &req) || !checkClosure(w, req.ClosureForm) {
		return
	}

	c := closureFrom(uuid.NewString(), req.Year, req.ClosureForm)
	s.mu.Lock()
	s.closures[c.ID] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateClosure(w http.ResponseWriter, r *http.Request) {
	var form calendars.ClosureForm
	if !readJSON(w, r, &form) || !checkClosure(w, form) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.closures[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Closure not found")
		return
	}
	c := closureFrom(old.ID, 0, form)
	s.closures[c.ID] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteClosure(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.closures[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Closure not found")
		return
	}
	delete(s.closures, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listExceptions(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]calendars.WorkingDayException, 0)
	for _, e := range s.exceptions {
		if e.Year == year {
			out = append(out, e)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

type exceptionRequest struct {
	calendars.ExceptionForm
	Year int `json:"year"`
}

func (s *Server) createException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := req.ExceptionForm.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Year == 0 {
		req.Year = yearOf(req.Date)
	}

	e := calendars.WorkingDayException{
		ID:     uuid.NewString(),
		Date:   req.Date,
		Type:   req.ExceptionType,
		Reason: req.Reason,
		Year:   req.Year,
	}
	s.mu.Lock()
	s.exceptions[e.ID] = e
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateException(w http.ResponseWriter, r *http.Request) {
	var form calendars.ExceptionForm
	if !readJSON(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exceptions[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Exception not found")
		return
	}
	e.Date, e.Type, e.Reason, e.Year = form.Date, form.ExceptionType, form.Reason, yearOf(form.Date)
	s.exceptions[e.ID] = e
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteException(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.exceptions[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Exception not found")
		return
	}
	delete(s.exceptions, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) subscriptionURLs(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	base := s.baseURL
	s.mu.Unlock()

	link := func(kind calendars.ICSKind, desc string) calendars.SubscriptionURL {
		return calendars.SubscriptionURL{
			URL:         fmt.Sprintf("%s/api/v1/calendar/ics/%s?year=%d", base, kind, year),
			Description: desc,
		}
	}
	writeJSON(w, http.StatusOK, calendars.URLSet{
		Holidays: link(calendars.ICSHolidays, fmt.Sprintf("Holidays %d", year)),
		Closures: link(calendars.ICSClosures, fmt.Sprintf("Company closures %d", year)),
		Combined: link(calendars.ICSCombined, fmt.Sprintf("Holidays and closures %d", year)),
	})
}

func queryYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "year query parameter is required")
		return 0, false
	}
	return year, true
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func yearOf(date string) int {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0
	}
	return d.Year()
}
