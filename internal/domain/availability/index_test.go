package availability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

func TestEmptyIndexIsAlwaysFree(t *testing.T) {
	candidates := []daterange.DateRange{
		daterange.MustParse("2024-06-10", "2024-06-10"),
		daterange.MustParse("1999-01-01", "2099-12-31"),
	}
	empty := FromBookings("venue-1", nil, nil)
	var nilIndex *Index
	for _, c := range candidates {
		assert.True(t, empty.IsFree(c))
		assert.True(t, nilIndex.IsFree(c))
	}
	assert.Empty(t, empty.UnavailableDates())
	assert.Zero(t, nilIndex.Len())
}

func TestFromBookingsSkipsMalformedEntries(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	idx := FromBookings("venue-1", []venues.Booking{
		{ID: "ok-2", DateFrom: "2024-07-01T00:00:00.000Z", DateTo: "2024-07-03T00:00:00.000Z"},
		{ID: "broken", DateFrom: "not-a-date", DateTo: "2024-06-12"},
		{ID: "inverted", DateFrom: "2024-06-20", DateTo: "2024-06-18"},
		{ID: "ok-1", DateFrom: "2024-06-10", DateTo: "2024-06-15"},
	}, logger)

	require.Equal(t, 2, idx.Len())
	blocks := idx.Blocks()
	assert.Equal(t, "ok-1", blocks[0].Reference, "blocks are ordered by start")
	assert.Equal(t, "ok-2", blocks[1].Reference)
	assert.Contains(t, logs.String(), "broken")
	assert.Contains(t, logs.String(), "inverted")
}

func TestIsFree(t *testing.T) {
	idx := NewIndex("venue-1", Block{Range: daterange.MustParse("2024-06-10", "2024-06-15"), Reference: "b1"})

	assert.False(t, idx.IsFree(daterange.MustParse("2024-06-15", "2024-06-18")), "touching boundary conflicts")
	assert.False(t, idx.IsFree(daterange.MustParse("2024-06-01", "2024-06-10")))
	assert.True(t, idx.IsFree(daterange.MustParse("2024-06-16", "2024-06-18")))
	assert.True(t, idx.IsFree(daterange.MustParse("2024-06-01", "2024-06-09")))

	conflicts := idx.Conflicts(daterange.MustParse("2024-06-12", "2024-06-20"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "b1", conflicts[0].Reference)
}

func TestWithBookingReturnsNewIndex(t *testing.T) {
	base := NewIndex("venue-1", Block{Range: daterange.MustParse("2024-06-10", "2024-06-15"), Reference: "b1"})
	r := daterange.MustParse("2024-06-16", "2024-06-18")

	next, err := base.WithBooking(r, "b2")
	require.NoError(t, err)
	assert.Equal(t, 1, base.Len(), "receiver is untouched")
	assert.Equal(t, 2, next.Len())
	assert.False(t, next.IsFree(r))
	assert.Equal(t, venues.VenueID("venue-1"), next.VenueID())

	_, err = next.WithBooking(daterange.MustParse("2024-06-18", "2024-06-20"), "b3")
	assert.ErrorIs(t, err, ErrConflictDetected)
	assert.Equal(t, 2, next.Len())
}

func TestUnavailableDatesMergesOverlappingAndAdjacent(t *testing.T) {
	idx := FromBookings("venue-1", []venues.Booking{
		{ID: "c", DateFrom: "2024-06-20", DateTo: "2024-06-22"},
		{ID: "a", DateFrom: "2024-06-10", DateTo: "2024-06-12"},
		{ID: "b", DateFrom: "2024-06-13", DateTo: "2024-06-14"},
		{ID: "inner", DateFrom: "2024-06-11", DateTo: "2024-06-11"},
	}, nil)

	got := idx.UnavailableDates()
	require.Len(t, got, 2)
	assert.Equal(t, "2024-06-10..2024-06-14", got[0].String())
	assert.Equal(t, "2024-06-20..2024-06-22", got[1].String())

	days := idx.BookedDays()
	assert.Len(t, days, 8)
	assert.True(t, idx.IsDayBooked(days[0]))
	d, _ := daterange.ParseDay("2024-06-16")
	assert.False(t, idx.IsDayBooked(d))
}
