package booking

import "strings"

// Reason is the closed set of ways a booking attempt can fail.
type Reason string

const (
	ReasonMalformedRange        Reason = "MALFORMED_RANGE"
	ReasonPastDateRange         Reason = "PAST_DATE_RANGE"
	ReasonGuestCountOutOfBounds Reason = "GUEST_COUNT_OUT_OF_BOUNDS"
	ReasonDateRangeConflict     Reason = "DATE_RANGE_CONFLICT"
	ReasonConflictAfterSubmit   Reason = "CONFLICT_AFTER_SUBMIT"
	ReasonAlreadyInProgress     Reason = "ALREADY_IN_PROGRESS"
	ReasonRemoteError           Reason = "REMOTE_ERROR"
)

var reasonMessages = map[Reason]string{
	ReasonMalformedRange:        "Please enter a valid start and end date, with the end date on or after the start date.",
	ReasonPastDateRange:         "Bookings cannot start in the past. Please pick a future start date.",
	ReasonGuestCountOutOfBounds: "The number of guests must be between 1 and the venue's maximum.",
	ReasonDateRangeConflict:     "The venue is already booked for some of the selected dates.",
	ReasonConflictAfterSubmit:   "Someone else booked these dates just before you. Availability has changed, please refresh and try again.",
	ReasonAlreadyInProgress:     "Your booking is already being submitted.",
	ReasonRemoteError:           "The booking service rejected the request.",
}

// Reasons lists every known reason in a stable order.
func Reasons() []Reason {
	return []Reason{
		ReasonMalformedRange,
		ReasonPastDateRange,
		ReasonGuestCountOutOfBounds,
		ReasonDateRangeConflict,
		ReasonConflictAfterSubmit,
		ReasonAlreadyInProgress,
		ReasonRemoteError,
	}
}

func (r Reason) Known() bool {
	_, ok := reasonMessages[r]
	return ok
}

// Message is the user-facing text for the reason.
func (r Reason) Message() string {
	return reasonMessages[r]
}

// Failure is a reason with optional detail. For ReasonRemoteError the detail is
// the collaborator's message and is shown verbatim.
type Failure struct {
	Reason Reason
	Detail string
}

// UserMessage picks the text shown to the user.
func (f Failure) UserMessage() string {
	if f.Reason == ReasonRemoteError && strings.TrimSpace(f.Detail) != "" {
		return f.Detail
	}
	return f.Reason.Message()
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return "booking: " + strings.ToLower(string(f.Reason))
	}
	return "booking: " + strings.ToLower(string(f.Reason)) + ": " + f.Detail
}
