package daterange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the canonical wire format of a calendar day.
const DayLayout = "2006-01-02"

const day = 24 * time.Hour

var ErrMalformedRange = errors.New("daterange: malformed range")

var dayLayouts = []string{
	DayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// DateRange represents a closed interval [Start, End] of calendar days.
// Both bounds sit at midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to midnight UTC of the calendar day it names in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts a bare date, an RFC3339 timestamp (fractional seconds allowed)
// or a zone-less timestamp and returns the calendar day it names.
func ParseDay(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrMalformedRange)
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date %q", ErrMalformedRange, raw)
}

// New truncates both ends to calendar days and rejects an end before the start.
func New(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, fmt.Errorf("%w: missing bound", ErrMalformedRange)
	}
	dr := DateRange{Start: Day(start), End: Day(end)}
	if dr.End.Before(dr.Start) {
		return DateRange{}, fmt.Errorf("%w: %s is before %s", ErrMalformedRange, dr.End.Format(DayLayout), dr.Start.Format(DayLayout))
	}
	return dr, nil
}

// Parse normalizes two raw date strings into a DateRange.
func Parse(rawStart, rawEnd string) (DateRange, error) {
	start, err := ParseDay(rawStart)
	if err != nil {
		return DateRange{}, err
	}
	end, err := ParseDay(rawEnd)
	if err != nil {
		return DateRange{}, err
	}
	return New(start, end)
}

// MustParse is Parse for literals known to be valid.
func MustParse(rawStart, rawEnd string) DateRange {
	dr, err := Parse(rawStart, rawEnd)
	if err != nil {
		panic(err)
	}
	return dr
}

func (dr DateRange) IsZero() bool {
	return dr.Start.IsZero() && dr.End.IsZero()
}

// Nights is the number of nights between Start and End. A same-day range has zero.
func (dr DateRange) Nights() int {
	return int(dr.End.Sub(dr.Start) / day)
}

// Overlaps reports whether both ranges share at least one calendar day.
// Ranges touching at a boundary day overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.End.Before(other.Start) && !other.End.Before(dr.Start)
}

// Contains reports whether other lies entirely within dr.
func (dr DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(dr.Start) && !other.End.After(dr.End)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	d := Day(t)
	return !d.Before(dr.Start) && !d.After(dr.End)
}

// Adjacent reports whether one range starts on the day after the other ends.
func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.End.Add(day).Equal(other.Start) || other.End.Add(day).Equal(dr.Start)
}

// Merge joins overlapping or adjacent ranges and reports false when they are apart.
func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	start := dr.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := dr.End
	if other.End.After(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, true
}

// Days lists every calendar day from Start to End inclusive.
func (dr DateRange) Days() []time.Time {
	if dr.IsZero() || dr.End.Before(dr.Start) {
		return nil
	}
	out := make([]time.Time, 0, dr.Nights()+1)
	for d := dr.Start; !d.After(dr.End); d = d.Add(day) {
		out = append(out, d)
	}
	return out
}

func (dr DateRange) String() string {
	return dr.Start.Format(DayLayout) + ".." + dr.End.Format(DayLayout)
}

type wireRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (dr DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRange{From: dr.Start.Format(DayLayout), To: dr.End.Format(DayLayout)})
}

func (dr *DateRange) UnmarshalJSON(data []byte) error {
	var w wireRange
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := Parse(w.From, w.To)
	if err != nil {
		return err
	}
	*dr = parsed
	return nil
}
