package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"venuebook/internal/app/policies"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

// VenueStore is an in-process venue directory and booking store. CreateBooking
// arbitrates under a single lock, so two overlapping bookings can never both land.
type VenueStore struct {
	mu     sync.RWMutex
	venues map[venues.VenueID]venues.Venue
	now    func() time.Time
	newID  func() string
}

func NewVenueStore(seed ...venues.Venue) *VenueStore {
	s := &VenueStore{
		venues: make(map[venues.VenueID]venues.Venue, len(seed)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, v := range seed {
		s.venues[v.ID] = cloneVenue(v)
	}
	return s
}

// Put adds or replaces a venue.
func (s *VenueStore) Put(v venues.Venue) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[v.ID] = cloneVenue(v)
	return nil
}

func (s *VenueStore) Venue(ctx context.Context, id venues.VenueID) (venues.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return venues.Venue{}, venues.ErrVenueNotFound
	}
	return cloneVenue(v), nil
}

func (s *VenueStore) CreateBooking(ctx context.Context, sub policies.Submission) (policies.BookingRecord, error) {
	if err := ctx.Err(); err != nil {
		return policies.BookingRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[sub.VenueID]
	if !ok {
		return policies.BookingRecord{}, &policies.StoreError{Status: http.StatusNotFound, Message: "No venue with such ID"}
	}
	if sub.Guests < 1 || sub.Guests > v.MaxGuests {
		return policies.BookingRecord{}, &policies.StoreError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Guests must be between 1 and %d", v.MaxGuests),
		}
	}
	if conflictsWithBookings(v.Bookings, sub.Range) {
		return policies.BookingRecord{}, &policies.StoreError{
			Status:  http.StatusConflict,
			Message: "The venue is already booked for the selected dates",
		}
	}
	rec := policies.BookingRecord{
		ID:        s.newID(),
		VenueID:   v.ID,
		Range:     sub.Range,
		Guests:    sub.Guests,
		Customer:  sub.CustomerID,
		CreatedAt: s.now().UTC(),
	}
	v.Bookings = append(v.Bookings, venues.Booking{
		ID:       rec.ID,
		DateFrom: sub.Range.Start.Format(daterange.DayLayout),
		DateTo:   sub.Range.End.Format(daterange.DayLayout),
		Guests:   sub.Guests,
		Customer: sub.CustomerID,
	})
	s.venues[v.ID] = v
	return rec, nil
}

// conflictsWithBookings treats stored bookings it cannot parse as occupying
// nothing, matching how the availability index reads them.
func conflictsWithBookings(bookings []venues.Booking, r daterange.DateRange) bool {
	return lo.SomeBy(bookings, func(b venues.Booking) bool {
		existing, err := daterange.Parse(b.DateFrom, b.DateTo)
		return err == nil && existing.Overlaps(r)
	})
}

func cloneVenue(v venues.Venue) venues.Venue {
	v.Bookings = append([]venues.Booking(nil), v.Bookings...)
	return v
}

type fixtureBooking struct {
	ID       string `json:"id"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
	Guests   int    `json:"guests"`
	Customer string `json:"customer"`
}

type fixtureVenue struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Owner     string           `json:"owner"`
	MaxGuests int              `json:"maxGuests"`
	Price     float64          `json:"price"`
	Bookings  []fixtureBooking `json:"bookings"`
}

// ParseFixtures decodes a JSON array of venues in the storefront's field naming.
func ParseFixtures(data []byte) ([]venues.Venue, error) {
	var raw []fixtureVenue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode venue fixtures: %w", err)
	}
	out := make([]venues.Venue, 0, len(raw))
	for _, fv := range raw {
		v := venues.Venue{
			ID:        venues.VenueID(fv.ID),
			Name:      fv.Name,
			Owner:     venues.OwnerID(fv.Owner),
			MaxGuests: fv.MaxGuests,
			Price:     fv.Price,
			Bookings: lo.Map(fv.Bookings, func(b fixtureBooking, _ int) venues.Booking {
				return venues.Booking{ID: b.ID, DateFrom: b.DateFrom, DateTo: b.DateTo, Guests: b.Guests, Customer: b.Customer}
			}),
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("venue fixture %q: %w", fv.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadFixtures reads venues from a JSON file.
func LoadFixtures(path string) ([]venues.Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixtures(data)
}

var (
	_ venues.Directory          = (*VenueStore)(nil)
	_ policies.BookingStorePort = (*VenueStore)(nil)
)
