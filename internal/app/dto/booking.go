package dto

import (
	"sort"

	bookingsvc "venuebook/internal/app/services/booking"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

type Validation struct {
	Valid   bool       `json:"valid"`
	Reason  string     `json:"reason,omitempty"`
	Message string     `json:"message,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Range   *DateRange `json:"range,omitempty"`
	Nights  int        `json:"nights,omitempty"`
}

type BookingOutcome struct {
	LifecycleID     string     `json:"lifecycle_id"`
	State           string     `json:"state"`
	Reason          string     `json:"reason,omitempty"`
	Message         string     `json:"message,omitempty"`
	BookingID       string     `json:"booking_id,omitempty"`
	Range           *DateRange `json:"range,omitempty"`
	RefetchRequired bool       `json:"refetch_required,omitempty"`
	Discarded       bool       `json:"discarded,omitempty"`
}

// Replayable reports whether the store committed a booking for this outcome.
// Rejections are left out so the same key can be submitted again.
func (o *BookingOutcome) Replayable() bool {
	return o != nil && o.BookingID != ""
}

type VenueBooking struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Nights   int    `json:"nights"`
	Guests   int    `json:"guests"`
	Customer string `json:"customer,omitempty"`
}

type VenueBookingCollection struct {
	VenueID string         `json:"venue_id"`
	Name    string         `json:"name"`
	Items   []VenueBooking `json:"items"`
	Skipped int            `json:"skipped,omitempty"`
}

func MapValidation(res domainbooking.ValidationResult) Validation {
	if !res.Valid() {
		f := res.Failure()
		return Validation{Reason: string(f.Reason), Message: f.UserMessage(), Detail: f.Detail}
	}
	dr := MapDateRange(res.Range)
	return Validation{Valid: true, Range: &dr, Nights: res.Range.Nights()}
}

func MapOutcome(out bookingsvc.Outcome) BookingOutcome {
	res := BookingOutcome{
		LifecycleID:     out.LifecycleID,
		State:           string(out.State),
		RefetchRequired: out.RefetchRequired(),
		Discarded:       out.Discarded,
	}
	if out.Failure.Reason != "" {
		res.Reason = string(out.Failure.Reason)
		res.Message = out.Failure.UserMessage()
	}
	if out.Booking != nil {
		res.BookingID = out.Booking.ID
	}
	if !out.Range.IsZero() {
		dr := MapDateRange(out.Range)
		res.Range = &dr
	}
	return res
}

// MapVenueBookings lists the venue's bookings ordered by start date. Entries
// with unusable dates are counted in Skipped rather than shown.
func MapVenueBookings(venue venues.Venue) VenueBookingCollection {
	out := VenueBookingCollection{
		VenueID: string(venue.ID),
		Name:    venue.Name,
		Items:   make([]VenueBooking, 0, len(venue.Bookings)),
	}
	for _, b := range venue.Bookings {
		r, err := daterange.Parse(b.DateFrom, b.DateTo)
		if err != nil {
			out.Skipped++
			continue
		}
		dr := MapDateRange(r)
		out.Items = append(out.Items, VenueBooking{
			ID:       b.ID,
			From:     dr.From,
			To:       dr.To,
			Nights:   r.Nights(),
			Guests:   b.Guests,
			Customer: b.Customer,
		})
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		// day layout sorts lexically
		return out.Items[i].From < out.Items[j].From
	})
	return out
}
