package booking

import (
	"time"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

type BookingConfirmed struct {
	LifecycleID string              `json:"lifecycle_id"`
	BookingID   string              `json:"booking_id"`
	VenueID     venues.VenueID      `json:"venue_id"`
	Range       daterange.DateRange `json:"range"`
	Guests      int                 `json:"guests"`
	At          time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.VenueID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	LifecycleID string         `json:"lifecycle_id"`
	VenueID     venues.VenueID `json:"venue_id"`
	Reason      Reason         `json:"reason"`
	Detail      string         `json:"detail,omitempty"`
	At          time.Time      `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.VenueID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

// ConflictAfterSubmit means the store holds a booking the local index could not take.
type ConflictAfterSubmit struct {
	LifecycleID string              `json:"lifecycle_id"`
	BookingID   string              `json:"booking_id"`
	VenueID     venues.VenueID      `json:"venue_id"`
	Range       daterange.DateRange `json:"range"`
	At          time.Time           `json:"at"`
}

func (e ConflictAfterSubmit) EventName() string     { return "booking.conflict_after_submit" }
func (e ConflictAfterSubmit) AggregateID() string   { return string(e.VenueID) }
func (e ConflictAfterSubmit) OccurredAt() time.Time { return e.At }
