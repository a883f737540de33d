package booking

import (
	"errors"
	"sync"
	"time"
)

var ErrInvalidTransition = errors.New("booking: invalid lifecycle transition")

type State string

const (
	StateIdle                State = "IDLE"
	StateValidating          State = "VALIDATING"
	StateSubmitting          State = "SUBMITTING"
	StateConfirmed           State = "CONFIRMED"
	StateRejected            State = "REJECTED"
	StateConflictAfterSubmit State = "CONFLICT_AFTER_SUBMIT"
)

func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateRejected, StateConflictAfterSubmit:
		return true
	default:
		return false
	}
}

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateSubmitting, StateRejected},
	StateSubmitting: {StateConfirmed, StateRejected, StateConflictAfterSubmit},
}

// Lifecycle tracks one booking attempt. A terminated lifecycle is never
// reused; a new attempt gets a new instance.
type Lifecycle struct {
	mu        sync.Mutex
	id        string
	state     State
	failure   Failure
	bookingID string
	history   []State
	startedAt time.Time
	updatedAt time.Time
}

// LifecycleSnapshot is an immutable copy of a lifecycle's state.
type LifecycleSnapshot struct {
	ID        string
	State     State
	Failure   Failure
	BookingID string
	History   []State
	StartedAt time.Time
	UpdatedAt time.Time
}

func NewLifecycle(id string, now time.Time) *Lifecycle {
	now = now.UTC()
	return &Lifecycle{
		id:        id,
		state:     StateIdle,
		history:   []State{StateIdle},
		startedAt: now,
		updatedAt: now,
	}
}

func (l *Lifecycle) ID() string {
	return l.id
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Snapshot() LifecycleSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LifecycleSnapshot{
		ID:        l.id,
		State:     l.state,
		Failure:   l.failure,
		BookingID: l.bookingID,
		History:   append([]State(nil), l.history...),
		StartedAt: l.startedAt,
		UpdatedAt: l.updatedAt,
	}
}

func (l *Lifecycle) BeginValidation(now time.Time) error {
	return l.transition(StateValidating, now, nil)
}

func (l *Lifecycle) BeginSubmission(now time.Time) error {
	return l.transition(StateSubmitting, now, nil)
}

func (l *Lifecycle) Reject(reason Reason, detail string, now time.Time) error {
	return l.transition(StateRejected, now, func() {
		l.failure = Failure{Reason: reason, Detail: detail}
	})
}

// Confirm is only legal from Submitting, after the store accepted the booking
// and the local index took it.
func (l *Lifecycle) Confirm(bookingID string, now time.Time) error {
	return l.transition(StateConfirmed, now, func() {
		l.bookingID = bookingID
	})
}

func (l *Lifecycle) MarkConflictAfterSubmit(bookingID string, now time.Time) error {
	return l.transition(StateConflictAfterSubmit, now, func() {
		l.bookingID = bookingID
		l.failure = Failure{Reason: ReasonConflictAfterSubmit}
	})
}

func (l *Lifecycle) transition(to State, now time.Time, apply func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !allowed(l.state, to) {
		return ErrInvalidTransition
	}
	if apply != nil {
		apply()
	}
	l.state = to
	l.history = append(l.history, to)
	l.updatedAt = now.UTC()
	return nil
}

func allowed(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
