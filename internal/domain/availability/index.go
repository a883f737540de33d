package availability

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

var ErrConflictDetected = errors.New("availability: range overlaps an existing booking")

// Block is one booked range held by the index.
type Block struct {
	Range     daterange.DateRange
	Reference string
}

// Index answers availability questions for a single venue without external calls.
// Values are never mutated after construction; WithBooking returns a new Index.
// A nil *Index behaves as an index with no bookings.
type Index struct {
	venueID venues.VenueID
	blocks  []Block
}

func NewIndex(venueID venues.VenueID, blocks ...Block) *Index {
	held := append([]Block(nil), blocks...)
	sortBlocks(held)
	return &Index{venueID: venueID, blocks: held}
}

// FromBookings builds the index from raw bookings. Entries whose dates cannot
// be normalized are skipped and logged so one corrupt record does not hide the venue.
func FromBookings(venueID venues.VenueID, bookings []venues.Booking, logger *slog.Logger) *Index {
	blocks := make([]Block, 0, len(bookings))
	for _, b := range bookings {
		r, err := daterange.Parse(b.DateFrom, b.DateTo)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping malformed booking",
					"venue_id", venueID,
					"booking_id", b.ID,
					"date_from", b.DateFrom,
					"date_to", b.DateTo,
					"error", err,
				)
			}
			continue
		}
		blocks = append(blocks, Block{Range: r, Reference: b.ID})
	}
	sortBlocks(blocks)
	return &Index{venueID: venueID, blocks: blocks}
}

func (i *Index) VenueID() venues.VenueID {
	if i == nil {
		return ""
	}
	return i.venueID
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.blocks)
}

func (i *Index) Blocks() []Block {
	if i == nil {
		return nil
	}
	return append([]Block(nil), i.blocks...)
}

func (i *Index) Ranges() []daterange.DateRange {
	if i == nil {
		return nil
	}
	return lo.Map(i.blocks, func(b Block, _ int) daterange.DateRange { return b.Range })
}

// IsFree reports whether candidate overlaps none of the held ranges.
func (i *Index) IsFree(candidate daterange.DateRange) bool {
	if i == nil {
		return true
	}
	for _, b := range i.blocks {
		if b.Range.Start.After(candidate.End) {
			// blocks are ordered by start; nothing further can overlap
			break
		}
		if b.Range.Overlaps(candidate) {
			return false
		}
	}
	return true
}

func (i *Index) Conflicts(candidate daterange.DateRange) []Block {
	if i == nil {
		return nil
	}
	return lo.Filter(i.blocks, func(b Block, _ int) bool { return b.Range.Overlaps(candidate) })
}

// WithBooking returns a copy of the index holding r as well. The check is
// repeated here even when the caller validated already, since the caller's
// view of the index may be stale.
func (i *Index) WithBooking(r daterange.DateRange, reference string) (*Index, error) {
	if !i.IsFree(r) {
		return i, ErrConflictDetected
	}
	next := &Index{venueID: i.VenueID()}
	next.blocks = make([]Block, 0, i.Len()+1)
	next.blocks = append(next.blocks, i.Blocks()...)
	next.blocks = append(next.blocks, Block{Range: r, Reference: reference})
	sortBlocks(next.blocks)
	return next, nil
}

// UnavailableDates merges overlapping and adjacent blocks into the minimal
// ordered set of unavailable ranges.
func (i *Index) UnavailableDates() []daterange.DateRange {
	ranges := i.Ranges()
	if len(ranges) == 0 {
		return nil
	}
	out := []daterange.DateRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := out[len(out)-1]
		if merged, ok := last.Merge(r); ok {
			out[len(out)-1] = merged
			continue
		}
		out = append(out, r)
	}
	return out
}

// BookedDays expands every unavailable range into its calendar days.
func (i *Index) BookedDays() []time.Time {
	var days []time.Time
	for _, r := range i.UnavailableDates() {
		days = append(days, r.Days()...)
	}
	return days
}

func (i *Index) IsDayBooked(t time.Time) bool {
	if i == nil {
		return false
	}
	for _, b := range i.blocks {
		if b.Range.ContainsDate(t) {
			return true
		}
	}
	return false
}

func sortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(a, b int) bool {
		return blocks[a].Range.Start.Before(blocks[b].Range.Start)
	})
}
