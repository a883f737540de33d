package venues

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrVenueNotFound = errors.New("venues: not found")
	ErrMaxGuests     = errors.New("venues: max guests must be at least 1")
	ErrIDRequired    = errors.New("venues: id is required")
	ErrNegativePrice = errors.New("venues: price must be non-negative")
)

type VenueID string
type OwnerID string

// Booking is a booked date range as the venue collaborator reports it.
// Dates are kept raw; normalization happens when the availability index is built.
type Booking struct {
	ID       string
	DateFrom string
	DateTo   string
	Guests   int
	Customer string
}

// Venue is the snapshot of venue facts the booking core consumes.
type Venue struct {
	ID        VenueID
	Name      string
	Owner     OwnerID
	MaxGuests int
	Price     float64
	Bookings  []Booking
}

// Directory supplies venue snapshots, bookings included.
type Directory interface {
	Venue(ctx context.Context, id VenueID) (Venue, error)
}

func (v Venue) Validate() error {
	if strings.TrimSpace(string(v.ID)) == "" {
		return ErrIDRequired
	}
	if v.MaxGuests < 1 {
		return ErrMaxGuests
	}
	if v.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// OwnedBy reports whether owner manages the venue.
func (v Venue) OwnedBy(owner OwnerID) bool {
	return owner != "" && v.Owner == owner
}
