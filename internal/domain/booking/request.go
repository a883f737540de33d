package booking

import (
	"time"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

// Request is a proposed booking as the user entered it. Dates stay raw until
// validation so that unparsable input is reported as a malformed range.
type Request struct {
	VenueID     venues.VenueID
	DateFrom    string
	DateTo      string
	Guests      int
	RequestedAt time.Time
}

func (r Request) Range() (daterange.DateRange, error) {
	return daterange.Parse(r.DateFrom, r.DateTo)
}
