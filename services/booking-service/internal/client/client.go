// Package client talks to booking-service over HTTP on behalf of the calendar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrorBody is the failure shape booking-service writes.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config mirrors GET /api/v1/config.
type Config struct {
	StartHour   int      `json:"startHour"`
	EndHour     int      `json:"endHour"`
	SlotMinutes int      `json:"slotMinutes"`
	Rooms       []string `json:"rooms"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
}

type HTTPClient struct {
	base *url.URL
	hc   *http.Client
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// New returns a client for the service at baseURL. Requests are traced through otelhttp.
func New(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &HTTPClient{
		base: u,
		hc: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := c.do(ctx, http.MethodGet, "/api/v1/config", nil, nil, &cfg)
	return cfg, err
}

func (c *HTTPClient) FetchDay(ctx context.Context, date, instructor string) (model.DaySnapshot, error) {
	var snap model.DaySnapshot
	q := url.Values{"date": {date}, "instructor": {instructor}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/bookings", q, nil, &snap); err != nil {
		return model.DaySnapshot{}, err
	}
	return snap, nil
}

// Init fetches the roster and a day in one call.
func (c *HTTPClient) Init(ctx context.Context, date, instructor string) ([]string, model.DaySnapshot, error) {
	var resp struct {
		Instructors []string `json:"instructors"`
		model.DaySnapshot
	}
	q := url.Values{"date": {date}, "instructor": {instructor}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/init", q, nil, &resp); err != nil {
		return nil, model.DaySnapshot{}, err
	}
	return resp.Instructors, resp.DaySnapshot, nil
}

func (c *HTTPClient) CreateBooking(ctx context.Context, in model.BookingInput) (model.Booking, error) {
	var resp struct {
		Booking model.Booking `json:"booking"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/bookings", nil, in, &resp); err != nil {
		return model.Booking{}, err
	}
	return resp.Booking, nil
}

func (c *HTTPClient) UpdateBooking(ctx context.Context, id string, patch model.BookingInput, password string) error {
	patch.Password = password
	body := struct {
		ID string `json:"id"`
		model.BookingInput
	}{ID: id, BookingInput: patch}
	return c.do(ctx, http.MethodPost, "/api/v1/bookings/update", nil, body, nil)
}

func (c *HTTPClient) DeleteBooking(ctx context.Context, id, password string) error {
	body := map[string]string{"id": id, "password": password}
	return c.do(ctx, http.MethodPost, "/api/v1/bookings/delete", nil, body, nil)
}

func (c *HTTPClient) ListInstructors(ctx context.Context) ([]string, error) {
	var resp struct {
		Instructors []string `json:"instructors"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/instructors", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instructors, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &model.RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.RemoteError{Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
	}
	return nil
}

// statusError maps a failed response onto the model error categories, keeping
// the server's reason text.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb ErrorBody
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = model.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = model.ErrAuth
	case http.StatusNotFound:
		kind = model.ErrNotFound
	case http.StatusConflict:
		kind = model.ErrConflict
	default:
		return &model.RemoteError{Status: resp.StatusCode, Message: msg}
	}
	return &StatusError{Status: resp.StatusCode, Kind: kind, Message: msg}
}

// StatusError is a categorized failure response. It matches its Kind under
// errors.Is and reads as the server's own message.
type StatusError struct {
	Status  int
	Kind    error
	Message string
}

func (e *StatusError) Error() string { return e.Message }

func (e *StatusError) Unwrap() error { return e.Kind }
