package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "venuebook/internal/app/outbox"
	infraoutbox "venuebook/internal/infra/outbox"
)

// Outbox keeps records in process and serves them to the outbox worker the
// same way the mongo store does. Sent records are dropped.
type Outbox struct {
	mu      sync.Mutex
	records []*infraoutbox.EventDocument
	notify  chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{notify: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       "NEW",
		NextAttempt: time.Now(),
	})
	return nil
}

// Flush signals Flushed; delivery is left to the worker.
func (o *Outbox) Flush(ctx context.Context) error {
	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

// Flushed fires after a Flush with pending records.
func (o *Outbox) Flushed() <-chan struct{} {
	return o.notify
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, rec := range o.records {
		if rec.State == "CLAIMED" || rec.NextAttempt.After(now) {
			continue
		}
		rec.State = "CLAIMED"
		rec.ClaimedBy = workerID
		rec.ClaimedAt = now
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, rec := range o.records {
		if rec.ID == id {
			o.records = append(o.records[:i], o.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.records {
		if rec.ID == id {
			rec.State = "FAILED"
			rec.NextAttempt = next
			rec.LastError = errMsg
			rec.Attempts++
		}
	}
	return nil
}

// Pending returns the names of records not yet sent.
func (o *Outbox) Pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.records))
	for _, rec := range o.records {
		names = append(names, rec.Name)
	}
	return names
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
