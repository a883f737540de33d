package dto

import (
	"time"

	"github.com/samber/lo"

	"venuebook/internal/domain/availability"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type BookedRange struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Availability is what a venue page needs to render its calendar and booking form.
type Availability struct {
	VenueID     string        `json:"venue_id"`
	Name        string        `json:"name"`
	MaxGuests   int           `json:"max_guests"`
	Price       float64       `json:"price"`
	Booked      []BookedRange `json:"booked"`
	Unavailable []DateRange   `json:"unavailable"`
	BookedDays  []string      `json:"booked_days"`
	Stale       bool          `json:"stale"`
	Submitting  bool          `json:"submitting"`
}

func MapDateRange(r daterange.DateRange) DateRange {
	return DateRange{
		From: r.Start.Format(daterange.DayLayout),
		To:   r.End.Format(daterange.DayLayout),
	}
}

func MapAvailability(venue venues.Venue, index *availability.Index, stale, submitting bool) Availability {
	return Availability{
		VenueID:   string(venue.ID),
		Name:      venue.Name,
		MaxGuests: venue.MaxGuests,
		Price:     venue.Price,
		Booked: lo.Map(index.Blocks(), func(b availability.Block, _ int) BookedRange {
			dr := MapDateRange(b.Range)
			return BookedRange{ID: b.Reference, From: dr.From, To: dr.To}
		}),
		Unavailable: lo.Map(index.UnavailableDates(), func(r daterange.DateRange, _ int) DateRange {
			return MapDateRange(r)
		}),
		BookedDays: lo.Map(index.BookedDays(), func(d time.Time, _ int) string {
			return d.Format(daterange.DayLayout)
		}),
		Stale:      stale,
		Submitting: submitting,
	}
}
