package booking

import (
	"context"
	"errors"
	"time"

	"venuebook/internal/app/dto"
	"venuebook/internal/app/queries"
	bookingsvc "venuebook/internal/app/services/booking"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/venues"
)

const validateBookingKey = "booking.validate"

var ErrViewsRequired = errors.New("booking: views registry required")

// ValidateBookingQuery checks a proposal against the session's view without
// submitting it.
type ValidateBookingQuery struct {
	SessionID string `validate:"required"`
	VenueID   string `validate:"required"`
	DateFrom  string
	DateTo    string
	Guests    int
}

func (q ValidateBookingQuery) Key() string { return validateBookingKey }

type ValidateBookingHandler struct {
	Views *bookingsvc.Views
}

func (h *ValidateBookingHandler) Handle(ctx context.Context, q ValidateBookingQuery) (dto.Validation, error) {
	if h.Views == nil {
		return dto.Validation{}, ErrViewsRequired
	}
	view, err := h.Views.Acquire(ctx, q.SessionID, venues.VenueID(q.VenueID))
	if err != nil {
		return dto.Validation{}, err
	}
	res := view.Processor.Validate(domainbooking.Request{
		VenueID:     venues.VenueID(q.VenueID),
		DateFrom:    q.DateFrom,
		DateTo:      q.DateTo,
		Guests:      q.Guests,
		RequestedAt: time.Now().UTC(),
	})
	return dto.MapValidation(res), nil
}

var _ queries.Handler[ValidateBookingQuery, dto.Validation] = (*ValidateBookingHandler)(nil)
