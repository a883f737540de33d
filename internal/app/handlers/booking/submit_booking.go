package booking

import (
	"context"
	"time"

	"venuebook/internal/app/commands"
	"venuebook/internal/app/dto"
	"venuebook/internal/app/middleware"
	bookingsvc "venuebook/internal/app/services/booking"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/venues"
)

const submitBookingKey = "booking.submit"

type SubmitBookingCommand struct {
	SessionID       string `validate:"required"`
	VenueID         string `validate:"required"`
	DateFrom        string
	DateTo          string
	Guests          int
	CustomerID      string
	AccessToken     string `json:"-"`
	IdempotencyKeyV string
}

func (c SubmitBookingCommand) Key() string { return submitBookingKey }

func (c SubmitBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitBookingCommand) ResultPrototype() any { return &dto.BookingOutcome{} }

type SubmitBookingHandler struct {
	Views *bookingsvc.Views
}

func (h *SubmitBookingHandler) Handle(ctx context.Context, cmd SubmitBookingCommand) (*dto.BookingOutcome, error) {
	if h.Views == nil {
		return nil, ErrViewsRequired
	}
	view, err := h.Views.Acquire(ctx, cmd.SessionID, venues.VenueID(cmd.VenueID))
	if err != nil {
		return nil, err
	}
	out, err := view.Processor.Submit(ctx, domainbooking.Request{
		VenueID:     venues.VenueID(cmd.VenueID),
		DateFrom:    cmd.DateFrom,
		DateTo:      cmd.DateTo,
		Guests:      cmd.Guests,
		RequestedAt: time.Now().UTC(),
	}, bookingsvc.SubmitOptions{
		CustomerID:     cmd.CustomerID,
		AccessToken:    cmd.AccessToken,
		IdempotencyKey: cmd.IdempotencyKeyV,
	})
	if err != nil {
		return nil, err
	}
	res := dto.MapOutcome(out)
	return &res, nil
}

var _ commands.Handler[SubmitBookingCommand, *dto.BookingOutcome] = (*SubmitBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitBookingCommand)(nil)
