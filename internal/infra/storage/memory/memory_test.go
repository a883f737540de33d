package memory

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/internal/app/middleware"
	appoutbox "venuebook/internal/app/outbox"
	"venuebook/internal/app/policies"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

func seededStore() *VenueStore {
	return NewVenueStore(venues.Venue{
		ID: "venue-1", Name: "Fjord cabin", Owner: "owner-1", MaxGuests: 4,
		Bookings: []venues.Booking{{ID: "b1", DateFrom: "2024-06-10", DateTo: "2024-06-15"}},
	})
}

func submission(from, to string, guests int) policies.Submission {
	return policies.Submission{VenueID: "venue-1", Range: daterange.MustParse(from, to), Guests: guests}
}

func storeStatus(t *testing.T, err error) int {
	t.Helper()
	var se *policies.StoreError
	require.True(t, errors.As(err, &se), "expected store error, got %v", err)
	return se.Status
}

func TestVenueStoreCreateBooking(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	rec, err := s.CreateBooking(ctx, submission("2024-06-20", "2024-06-22", 2))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	v, err := s.Venue(ctx, "venue-1")
	require.NoError(t, err)
	require.Len(t, v.Bookings, 2)
	assert.Equal(t, "2024-06-20", v.Bookings[1].DateFrom)
}

func TestVenueStoreArbitratesOverlaps(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	_, err := s.CreateBooking(ctx, submission("2024-06-15", "2024-06-16", 1))
	assert.Equal(t, http.StatusConflict, storeStatus(t, err), "touching boundaries overlap")

	_, err = s.CreateBooking(ctx, submission("2024-06-20", "2024-06-20", 9))
	assert.Equal(t, http.StatusBadRequest, storeStatus(t, err))

	sub := submission("2024-06-20", "2024-06-20", 1)
	sub.VenueID = "missing"
	_, err = s.CreateBooking(ctx, sub)
	assert.Equal(t, http.StatusNotFound, storeStatus(t, err))
}

func TestVenueStoreConcurrentSubmissionsSingleWinner(t *testing.T) {
	s := seededStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateBooking(context.Background(), submission("2024-07-01", "2024-07-03", 1)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestVenueStoreReturnsCopies(t *testing.T) {
	s := seededStore()
	v, err := s.Venue(context.Background(), "venue-1")
	require.NoError(t, err)
	v.Bookings[0].DateFrom = "tampered"

	again, err := s.Venue(context.Background(), "venue-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10", again.Bookings[0].DateFrom)

	_, err = s.Venue(context.Background(), "missing")
	assert.ErrorIs(t, err, venues.ErrVenueNotFound)
}

func TestParseFixtures(t *testing.T) {
	vs, err := ParseFixtures([]byte(`[{"id":"v1","name":"Loft","owner":"o1","maxGuests":3,"price":90,
		"bookings":[{"id":"b1","dateFrom":"2024-01-01","dateTo":"2024-01-02","guests":2}]}]`))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, venues.VenueID("v1"), vs[0].ID)
	assert.Len(t, vs[0].Bookings, 1)

	_, err = ParseFixtures([]byte(`[{"id":"","maxGuests":1}]`))
	assert.Error(t, err)
	_, err = ParseFixtures([]byte(`{`))
	assert.Error(t, err)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte(`{}`)}))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOutboxClaimAndAcknowledge(t *testing.T) {
	box := NewOutbox()
	ctx := context.Background()

	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.confirmed", Payload: []byte(`{}`)}))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e2", Name: "booking.rejected", Payload: []byte(`{}`)}))
	require.NoError(t, box.Flush(ctx))
	select {
	case <-box.Flushed():
	default:
		t.Fatal("flush should signal")
	}

	doc, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "e1", doc.ID)

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(time.Hour), "down"))
	next, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "e2", next.ID, "failed records wait for their retry time")

	require.NoError(t, box.MarkSent(ctx, "e2"))
	assert.Equal(t, []string{"booking.confirmed"}, box.Pending())

	none, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, none)
}
