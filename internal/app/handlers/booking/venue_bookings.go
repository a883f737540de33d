package booking

import (
	"context"
	"errors"
	"strings"

	"venuebook/internal/app/dto"
	"venuebook/internal/app/queries"
	"venuebook/internal/domain/venues"
)

const listVenueBookingsKey = "owner.venue.bookings"

var ErrVenueNotOwned = errors.New("booking: venue not owned by caller")

// ListVenueBookingsQuery lets a venue owner see who booked which dates.
type ListVenueBookingsQuery struct {
	OwnerID string `validate:"required"`
	VenueID string `validate:"required"`
}

func (q ListVenueBookingsQuery) Key() string { return listVenueBookingsKey }

type ListVenueBookingsHandler struct {
	Directory venues.Directory
}

func (h *ListVenueBookingsHandler) Handle(ctx context.Context, q ListVenueBookingsQuery) (dto.VenueBookingCollection, error) {
	if h.Directory == nil {
		return dto.VenueBookingCollection{}, errors.New("booking: venue directory required")
	}
	venue, err := h.Directory.Venue(ctx, venues.VenueID(strings.TrimSpace(q.VenueID)))
	if err != nil {
		return dto.VenueBookingCollection{}, err
	}
	if !venue.OwnedBy(venues.OwnerID(strings.TrimSpace(q.OwnerID))) {
		return dto.VenueBookingCollection{}, ErrVenueNotOwned
	}
	return dto.MapVenueBookings(venue), nil
}

var _ queries.Handler[ListVenueBookingsQuery, dto.VenueBookingCollection] = (*ListVenueBookingsHandler)(nil)
