package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/internal/app/commands"
	"venuebook/internal/app/dto"
	availabilityapp "venuebook/internal/app/handlers/availability"
	bookingapp "venuebook/internal/app/handlers/booking"
	"venuebook/internal/app/middleware"
	"venuebook/internal/app/queries"
	bookingsvc "venuebook/internal/app/services/booking"
	"venuebook/internal/domain/venues"
	"venuebook/internal/infra/config"
	"venuebook/internal/infra/obs"
	"venuebook/internal/infra/storage/memory"
)

type testStack struct {
	router *gin.Engine
	store  *memory.VenueStore
	box    *memory.Outbox
}

func newTestStack(t *testing.T) testStack {
	t.Helper()
	store := memory.NewVenueStore(venues.Venue{
		ID: "venue-1", Name: "Fjord cabin", Owner: "olga", MaxGuests: 4, Price: 120,
		Bookings: []venues.Booking{{ID: "b1", DateFrom: "2099-06-10T00:00:00.000Z", DateTo: "2099-06-15T00:00:00.000Z", Guests: 2}},
	})
	box := memory.NewOutbox()
	views := bookingsvc.NewViews(bookingsvc.ViewsConfig{Directory: store, Store: store, Outbox: box})

	cbus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.SubmitBookingCommand, *dto.BookingOutcome](cbus, &bookingapp.SubmitBookingHandler{Views: views})
	commands.RegisterHandler[bookingapp.CloseViewCommand, bookingapp.CloseViewResult](cbus, &bookingapp.CloseViewHandler{Views: views})
	qbus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.OpenViewQuery, dto.Availability](qbus, &availabilityapp.OpenViewHandler{Views: views})
	queries.RegisterHandler[bookingapp.ValidateBookingQuery, dto.Validation](qbus, &bookingapp.ValidateBookingHandler{Views: views})
	queries.RegisterHandler[bookingapp.ListVenueBookingsQuery, dto.VenueBookingCollection](qbus, &bookingapp.ListVenueBookingsHandler{Directory: store})

	v := middleware.NewStructValidator()
	metrics := obs.NewMetrics()
	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{Metrics: metrics}, obs.HealthHandlers{}, Handlers{
		Venue: VenueHandler{
			Commands: middleware.ChainCommands(cbus, middleware.Validation(v), middleware.Idempotency(memory.NewIdempotencyStore(0), nil), middleware.OutboxFlush(box, nil)),
			Queries:  middleware.ChainQueries(qbus, middleware.QueryValidation(v)),
		},
		Owner:   OwnerHandler{Queries: middleware.ChainQueries(qbus, middleware.QueryValidation(v))},
		Metrics: metrics.Handler(),
	})
	return testStack{router: router, store: store, box: box}
}

func (s testStack) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var session = map[string]string{obs.HeaderSessionID: "s1", "Authorization": "Bearer tok", headerCustomerID: "kari"}

func TestAvailabilityRequiresSession(t *testing.T) {
	s := newTestStack(t)
	rec := s.do(t, http.MethodGet, "/api/v1/venues/venue-1/availability", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityAndValidate(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodGet, "/api/v1/venues/venue-1/availability", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	avail := decode[dto.Availability](t, rec)
	assert.Equal(t, []dto.DateRange{{From: "2099-06-10", To: "2099-06-15"}}, avail.Unavailable)
	assert.Len(t, avail.BookedDays, 6)
	assert.NotEmpty(t, rec.Header().Get(obs.HeaderRequestID))

	rec = s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings/validate",
		bookingRequest{DateFrom: "2099-06-15", DateTo: "2099-06-16", Guests: 2}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	val := decode[dto.Validation](t, rec)
	assert.False(t, val.Valid)
	assert.Equal(t, "DATE_RANGE_CONFLICT", val.Reason)

	rec = s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings/validate",
		bookingRequest{DateFrom: "2099-06-16", DateTo: "2099-06-18", Guests: 2}, session)
	val = decode[dto.Validation](t, rec)
	assert.True(t, val.Valid)
	assert.Equal(t, 2, val.Nights)
}

func TestSubmitBookingFlow(t *testing.T) {
	s := newTestStack(t)
	body := bookingRequest{DateFrom: "2099-07-01", DateTo: "2099-07-03", Guests: 2}

	rec := s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings", body, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[dto.BookingOutcome](t, rec)
	assert.Equal(t, "CONFIRMED", out.State)
	assert.NotEmpty(t, out.BookingID)
	assert.Contains(t, s.box.Pending(), "booking.confirmed")

	v, err := s.store.Venue(context.Background(), "venue-1")
	require.NoError(t, err)
	require.Len(t, v.Bookings, 2)
	assert.Equal(t, "kari", v.Bookings[1].Customer)

	rec = s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings", body, session)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DATE_RANGE_CONFLICT", decode[dto.BookingOutcome](t, rec).Reason)

	rec = s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings",
		bookingRequest{DateFrom: "2099-08-01", DateTo: "2099-08-01", Guests: 9}, session)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitReplaysIdempotencyKey(t *testing.T) {
	s := newTestStack(t)
	headers := map[string]string{obs.HeaderSessionID: "s1", headerIdempotencyKey: "attempt-1"}
	body := bookingRequest{DateFrom: "2099-07-01", DateTo: "2099-07-03", Guests: 2}

	first := decode[dto.BookingOutcome](t, s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings", body, headers))
	second := s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings", body, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.BookingID, decode[dto.BookingOutcome](t, second).BookingID)

	v, err := s.store.Venue(context.Background(), "venue-1")
	require.NoError(t, err)
	assert.Len(t, v.Bookings, 2)
}

func TestSubmitRetriesRejectedAttemptWithSameKey(t *testing.T) {
	s := newTestStack(t)
	headers := map[string]string{obs.HeaderSessionID: "s1", headerIdempotencyKey: "attempt-1"}

	rec := s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings",
		bookingRequest{DateFrom: "2099-07-01", DateTo: "2099-07-03", Guests: 9}, headers)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "GUEST_COUNT_OUT_OF_BOUNDS", decode[dto.BookingOutcome](t, rec).Reason)

	rec = s.do(t, http.MethodPost, "/api/v1/venues/venue-1/bookings",
		bookingRequest{DateFrom: "2099-07-01", DateTo: "2099-07-03", Guests: 2}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", decode[dto.BookingOutcome](t, rec).State)
}

func TestUnknownVenue(t *testing.T) {
	s := newTestStack(t)
	rec := s.do(t, http.MethodGet, "/api/v1/venues/nope/availability", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseViews(t *testing.T) {
	s := newTestStack(t)
	s.do(t, http.MethodGet, "/api/v1/venues/venue-1/availability", nil, session)

	rec := s.do(t, http.MethodDelete, "/api/v1/venues/venue-1/view", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[bookingapp.CloseViewResult](t, rec).Closed)

	rec = s.do(t, http.MethodDelete, "/api/v1/session/views", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[bookingapp.CloseViewResult](t, rec).Closed)
}

func TestOwnerBookings(t *testing.T) {
	s := newTestStack(t)
	path := "/api/v1/owner/venues/venue-1/bookings"

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, nil, map[string]string{headerOwnerID: "someone"}).Code)

	rec := s.do(t, http.MethodGet, path, nil, map[string]string{headerOwnerID: "olga"})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.VenueBookingCollection](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 5, list.Items[0].Nights)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestStack(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/livez", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", nil, nil).Code)

	s.do(t, http.MethodGet, "/api/v1/venues/venue-1/availability", nil, session)
	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "venuebook_http_request_seconds")
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, http.StatusGone, outcomeStatus("SUBMITTING", "", true))
	assert.Equal(t, http.StatusTooManyRequests, outcomeStatus("REJECTED", "ALREADY_IN_PROGRESS", false))
	assert.Equal(t, http.StatusBadGateway, outcomeStatus("REJECTED", "REMOTE_ERROR", false))
	assert.Equal(t, http.StatusConflict, outcomeStatus("CONFLICT_AFTER_SUBMIT", "CONFLICT_AFTER_SUBMIT", false))
}
