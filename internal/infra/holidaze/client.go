package holidaze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sony/gobreaker"

	"venuebook/internal/app/policies"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

const apiKeyHeader = "X-Noroff-API-Key"

// Config describes the remote venue API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
	// HTTPClient overrides the default client; its Timeout is left alone.
	HTTPClient *http.Client
}

// Client reads venues from and writes bookings to the Holidaze REST API.
// Calls go through a circuit breaker; 4xx answers do not trip it.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("holidaze: invalid base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{base: base, apiKey: cfg.APIKey, http: httpClient, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "holidaze",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *policies.StoreError
			return err == nil || (errors.As(err, &se) && se.Status < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c, nil
}

type apiBooking struct {
	ID       string     `json:"id"`
	DateFrom string     `json:"dateFrom"`
	DateTo   string     `json:"dateTo"`
	Guests   int        `json:"guests"`
	Created  time.Time  `json:"created"`
	Customer *apiPerson `json:"customer,omitempty"`
}

type apiPerson struct {
	Name string `json:"name"`
}

type apiVenue struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Price     float64      `json:"price"`
	MaxGuests int          `json:"maxGuests"`
	Owner     *apiPerson   `json:"owner,omitempty"`
	Bookings  []apiBooking `json:"bookings"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type apiError struct {
	Message string `json:"message"`
}

type apiErrors struct {
	Errors []apiError `json:"errors"`
}

type bookingBody struct {
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
	Guests   int    `json:"guests"`
	VenueID  string `json:"venueId"`
}

// Venue fetches a venue with its bookings and owner.
func (c *Client) Venue(ctx context.Context, id venues.VenueID) (venues.Venue, error) {
	path := "/venues/" + url.PathEscape(string(id))
	query := url.Values{"_bookings": {"true"}, "_owner": {"true"}}
	var out envelope[apiVenue]
	err := c.do(ctx, http.MethodGet, path, query, "", nil, &out)
	var se *policies.StoreError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return venues.Venue{}, venues.ErrVenueNotFound
	}
	if err != nil {
		return venues.Venue{}, err
	}
	return out.Data.toVenue(), nil
}

func (c *Client) CreateBooking(ctx context.Context, sub policies.Submission) (policies.BookingRecord, error) {
	body := bookingBody{
		DateFrom: sub.Range.Start.Format(time.RFC3339),
		DateTo:   sub.Range.End.Format(time.RFC3339),
		Guests:   sub.Guests,
		VenueID:  string(sub.VenueID),
	}
	var out envelope[apiBooking]
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, sub.AccessToken, body, &out); err != nil {
		return policies.BookingRecord{}, err
	}
	rec := policies.BookingRecord{
		ID:        out.Data.ID,
		VenueID:   sub.VenueID,
		Range:     sub.Range,
		Guests:    out.Data.Guests,
		Customer:  sub.CustomerID,
		CreatedAt: out.Data.Created,
	}
	// The store's own dates win when they parse.
	if r, err := daterange.Parse(out.Data.DateFrom, out.Data.DateTo); err == nil {
		rec.Range = r
	}
	if rec.Guests == 0 {
		rec.Guests = sub.Guests
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}

// do runs one request through the breaker. Non-2xx answers become *policies.StoreError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, token, body, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	u := *c.base
	u.Path = u.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("holidaze: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("holidaze: read %s %s: %w", method, path, err)
	}
	c.logger.DebugContext(ctx, "holidaze call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &policies.StoreError{Status: resp.StatusCode, Message: errorMessage(payload, resp.Status)}
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("holidaze: decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(payload []byte, fallback string) string {
	var parsed apiErrors
	if err := json.Unmarshal(payload, &parsed); err == nil && len(parsed.Errors) > 0 {
		msgs := lo.FilterMap(parsed.Errors, func(e apiError, _ int) (string, bool) {
			return e.Message, e.Message != ""
		})
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fallback
}

func (v apiVenue) toVenue() venues.Venue {
	out := venues.Venue{
		ID:        venues.VenueID(v.ID),
		Name:      v.Name,
		MaxGuests: v.MaxGuests,
		Price:     v.Price,
		Bookings: lo.Map(v.Bookings, func(b apiBooking, _ int) venues.Booking {
			booking := venues.Booking{ID: b.ID, DateFrom: b.DateFrom, DateTo: b.DateTo, Guests: b.Guests}
			if b.Customer != nil {
				booking.Customer = b.Customer.Name
			}
			return booking
		}),
	}
	if v.Owner != nil {
		out.Owner = venues.OwnerID(v.Owner.Name)
	}
	return out
}

var (
	_ venues.Directory          = (*Client)(nil)
	_ policies.BookingStorePort = (*Client)(nil)
)
