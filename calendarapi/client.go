// Package calendarapi is the HTTP client of the KRONOS calendar service.
package calendarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/goliatone/kronos-sync/calendars"
)

const basePath = "/api/v1/calendar"

// Client talks to the calendar service. Reads are retried on network errors
// and 5xx responses; mutations are sent exactly once.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	attempts   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The client keeps a copy
// of hc, so later options never change the caller's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			copied := *hc
			c.httpClient = &copied
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithReadRetries sets how many times a read is attempted. Values below one
// mean a single attempt.
func WithReadRetries(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = uint(attempts)
		c.retryDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service at baseURL, for example
// http://localhost:8000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		attempts:   3,
		retryDelay: 200 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "calendar_api"))
	return c
}

var _ calendars.API = (*Client)(nil)

func yearQuery(year int) url.Values {
	return url.Values{"year": {strconv.Itoa(year)}}
}

// ListHolidays returns the holidays of year. The read is retried.
func (c *Client) ListHolidays(ctx context.Context, year int) ([]calendars.Holiday, error) {
	var out []calendars.Holiday
	err := c.read(ctx, "/holidays", yearQuery(year), &out)
	return out, err
}

type holidayPayload struct {
	calendars.HolidayForm
	Year int `json:"year,omitempty"`
}

// CreateHoliday posts form for year.
func (c *Client) CreateHoliday(ctx context.Context, year int, form calendars.HolidayForm) (calendars.Holiday, error) {
	var out calendars.Holiday
	err := c.write(ctx, http.MethodPost, "/holidays", holidayPayload{HolidayForm: form, Year: year}, &out)
	return out, err
}

// UpdateHoliday replaces holiday id.
func (c *Client) UpdateHoliday(ctx context.Context, id string, form calendars.HolidayForm) (calendars.Holiday, error) {
	var out calendars.Holiday
	err := c.write(ctx, http.MethodPut, "/holidays/"+url.PathEscape(id), form, &out)
	return out, err
}

// DeleteHoliday removes holiday id.
func (c *Client) DeleteHoliday(ctx context.Context, id string) error {
	return c.write(ctx, http.MethodDelete, "/holidays/"+url.PathEscape(id), nil, nil)
}

// ConfirmHoliday marks holiday id as confirmed and returns it.
func (c *Client) ConfirmHoliday(ctx context.Context, id string) (calendars.Holiday, error) {
	var out calendars.Holiday
	err := c.write(ctx, http.MethodPost, "/holidays/"+url.PathEscape(id)+"/confirm", nil, &out)
	return out, err
}

type generateRequest struct {
	Year int `json:"year"`
}

// GenerateHolidays asks the service to create the national holidays of
// year and returns the ones it created.
func (c *Client) GenerateHolidays(ctx context.Context, year int) ([]calendars.Holiday, error) {
	var out []calendars.Holiday
	err := c.write(ctx, http.MethodPost, "/holidays/generate", generateRequest{Year: year}, &out)
	return out, err
}

type copyRequest struct {
	SourceYear int `json:"source_year"`
	TargetYear int `json:"target_year"`
}

type copyResponse struct {
	Copied int `json:"copied"`
}

// CopyHolidays copies the holidays of fromYear into toYear and returns the
// number copied.
func (c *Client) CopyHolidays(ctx context.Context, fromYear, toYear int) (int, error) {
	var out copyResponse
	err := c.write(ctx, http.MethodPost, "/holidays/copy", copyRequest{SourceYear: fromYear, TargetYear: toYear}, &out)
	return out.Copied, err
}

// ListClosures returns the closures of year.
func (c *Client) ListClosures(ctx context.Context, year int) ([]calendars.Closure, error) {
	var out []calendars.Closure
	err := c.read(ctx, "/closures", yearQuery(year), &out)
	return out, err
}

type closurePayload struct {
	calendars.ClosureForm
	Year int `json:"year,omitempty"`
}

// CreateClosure posts form for year.
func (c *Client) CreateClosure(ctx context.Context, year int, form calendars.ClosureForm) (calendars.Closure, error) {
	var out calendars.Closure
	err := c.write(ctx, http.MethodPost, "/closures", closurePayload{ClosureForm: form, Year: year}, &out)
	return out, err
}

// UpdateClosure replaces closure id.
func (c *Client) UpdateClosure(ctx context.Context, id string, form calendars.ClosureForm) (calendars.Closure, error) {
	var out calendars.Closure
	err := c.write(ctx, http.MethodPut, "/closures/"+url.PathEscape(id), form, &out)
	return out, err
}

// DeleteClosure removes closure id.
func (c *Client) DeleteClosure(ctx context.Context, id string) error {
	return c.write(ctx, http.MethodDelete, "/closures/"+url.PathEscape(id), nil, nil)
}

// ListExceptions returns every working-day exception of year.
func (c *Client) ListExceptions(ctx context.Context, year int) ([]calendars.WorkingDayException, error) {
	var out []calendars.WorkingDayException
	err := c.read(ctx, "/exceptions", yearQuery(year), &out)
	return out, err
}

type exceptionPayload struct {
	calendars.ExceptionForm
	Year int `json:"year,omitempty"`
}

// CreateException posts form for year.
func (c *Client) CreateException(ctx context.Context, year int, form calendars.ExceptionForm) (calendars.WorkingDayException, error) {
	var out calendars.WorkingDayException
	err := c.write(ctx, http.MethodPost, "/exceptions", exceptionPayload{ExceptionForm: form, Year: year}, &out)
	return out, err
}

// UpdateException replaces exception id.
func (c *Client) UpdateException(ctx context.Context, id string, form calendars.ExceptionForm) (calendars.WorkingDayException, error) {
	var out calendars.WorkingDayException
	err := c.write(ctx, http.MethodPut, "/exceptions/"+url.PathEscape(id), form, &out)
	return out, err
}

// DeleteException removes exception id.
func (c *Client) DeleteException(ctx context.Context, id string) error {
	return c.write(ctx, http.MethodDelete, "/exceptions/"+url.PathEscape(id), nil, nil)
}

// SubscriptionURLs returns the iCal feed links of year.
func (c *Client) SubscriptionURLs(ctx context.Context, year int) (calendars.URLSet, error) {
	var out calendars.URLSet
	err := c.read(ctx, "/subscription-urls", yearQuery(year), &out)
	return out, err
}

// DownloadICS streams the ICS file of kind for year into w and returns the
// number of bytes written.
func (c *Client) DownloadICS(ctx context.Context, year int, kind calendars.ICSKind, w io.Writer) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("calendarapi: unknown ics kind %q", kind)
	}

	path := "/ics/" + string(kind)
	resp, err := c.do(ctx, http.MethodGet, path, yearQuery(year), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("calendarapi: reading %s: %w", path, err)
	}
	return n, nil
}

// read performs a GET with retries and decodes the JSON body into out.
func (c *Client) read(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(
		func() error {
			resp, err := c.do(ctx, http.MethodGet, path, query, nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return decode(resp, path, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying read",
				slog.String("path", path),
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("error", err),
			)
		}),
	)
}

// write sends body once and decodes the response into out, if given.
func (c *Client) write(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("calendarapi: encoding %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decode(resp, path, out)
}

// do sends one request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	reqURL := c.baseURL + basePath + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("calendarapi: building %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendarapi: %s %s: %w", method, path, err)
	}
	c.logger.Debug("request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &APIError{
			Method:     method,
			Path:       basePath + path,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
		}
	}
	return resp, nil
}

func decode(resp *http.Response, path string, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("calendarapi: decoding %s: %w", path, err)
	}
	return nil
}

// retryable accepts transport failures and temporary server errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
