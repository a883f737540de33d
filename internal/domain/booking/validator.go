package booking

import (
	"fmt"
	"time"

	"venuebook/internal/domain/availability"
	"venuebook/internal/domain/shared/daterange"
)

// ValidationResult is either valid, carrying the normalized range, or invalid
// with exactly one reason.
type ValidationResult struct {
	Reason Reason
	Detail string
	Range  daterange.DateRange
}

func Valid(r daterange.DateRange) ValidationResult {
	return ValidationResult{Range: r}
}

func Invalid(reason Reason, detail string) ValidationResult {
	return ValidationResult{Reason: reason, Detail: detail}
}

func (v ValidationResult) Valid() bool {
	return v.Reason == ""
}

func (v ValidationResult) Failure() Failure {
	return Failure{Reason: v.Reason, Detail: v.Detail}
}

// Validate is the gate every proposal passes before submission. Checks run in
// order and stop at the first failure:
//
//  1. the range parses and start <= end
//  2. start is not before today
//  3. 1 <= guests <= maxGuests
//  4. the range is free in the index
//
// It has no side effects; today is truncated to its calendar day.
func Validate(req Request, index *availability.Index, maxGuests int, today time.Time) ValidationResult {
	r, err := req.Range()
	if err != nil {
		return Invalid(ReasonMalformedRange, err.Error())
	}
	if r.Start.Before(daterange.Day(today)) {
		return Invalid(ReasonPastDateRange, fmt.Sprintf("start %s is before %s", r.Start.Format(daterange.DayLayout), daterange.Day(today).Format(daterange.DayLayout)))
	}
	if req.Guests < 1 || req.Guests > maxGuests {
		return Invalid(ReasonGuestCountOutOfBounds, fmt.Sprintf("guests %d outside [1, %d]", req.Guests, maxGuests))
	}
	if !index.IsFree(r) {
		return Invalid(ReasonDateRangeConflict, r.String())
	}
	return Valid(r)
}
