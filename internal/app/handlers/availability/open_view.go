package availability

import (
	"context"
	"errors"

	"venuebook/internal/app/dto"
	"venuebook/internal/app/queries"
	bookingsvc "venuebook/internal/app/services/booking"
	"venuebook/internal/domain/venues"
)

const openViewKey = "availability.view.open"

var ErrViewsRequired = errors.New("availability: views registry required")

// OpenViewQuery fetches a venue and opens (or refreshes) the session's view of it.
type OpenViewQuery struct {
	SessionID string `validate:"required"`
	VenueID   string `validate:"required"`
}

func (q OpenViewQuery) Key() string { return openViewKey }

type OpenViewHandler struct {
	Views *bookingsvc.Views
}

func (h *OpenViewHandler) Handle(ctx context.Context, q OpenViewQuery) (dto.Availability, error) {
	if h.Views == nil {
		return dto.Availability{}, ErrViewsRequired
	}
	view, err := h.Views.Open(ctx, q.SessionID, venues.VenueID(q.VenueID))
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(view.Venue, view.Processor.Index(), view.Stale(), view.Processor.InFlight()), nil
}

var _ queries.Handler[OpenViewQuery, dto.Availability] = (*OpenViewHandler)(nil)
