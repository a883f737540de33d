package availability

import (
	"time"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

// OverbookingPrevented is recorded when a store-accepted booking could not be
// applied to the local index because another booking got there first.
type OverbookingPrevented struct {
	VenueID   string              `json:"venue_id"`
	Range     daterange.DateRange `json:"range"`
	BookingID string              `json:"booking_id"`
	Conflicts []string            `json:"conflicts"`
	At        time.Time           `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "availability.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.VenueID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func OverbookingPreventedEvent(id venues.VenueID, r daterange.DateRange, bookingID string, conflicts []Block, at time.Time) OverbookingPrevented {
	refs := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		refs = append(refs, c.Reference)
	}
	return OverbookingPrevented{VenueID: string(id), Range: r, BookingID: bookingID, Conflicts: refs, At: at.UTC()}
}
