package policies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

// Submission is what the booking store receives for a new booking.
type Submission struct {
	VenueID        venues.VenueID
	Range          daterange.DateRange
	Guests         int
	CustomerID     string
	AccessToken    string
	IdempotencyKey string
}

// BookingRecord is the store's confirmation of a booking.
type BookingRecord struct {
	ID        string
	VenueID   venues.VenueID
	Range     daterange.DateRange
	Guests    int
	Customer  string
	CreatedAt time.Time
}

// BookingStorePort is the authoritative booking store. It arbitrates
// concurrent bookings; callers treat any error as a remote failure.
type BookingStorePort interface {
	CreateBooking(ctx context.Context, sub Submission) (BookingRecord, error)
}

// StoreError is a structured non-success answer from the booking store.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("booking store: status %d: %s", e.Status, e.Message)
}

// StoreMessage extracts the message to show for a store failure.
func StoreMessage(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
