package events

import (
	"sync"
	"time"
)

// DomainEvent is anything a core component wants published after the fact.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder buffers events until the owner drains them into an outbox.
// It is safe for concurrent use.
type EventRecorder struct {
	mu      sync.Mutex
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// Drain returns the buffered events and empties the buffer.
func (r *EventRecorder) Drain() []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}
