package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventDocument is an outbox record as the worker sees it.
type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by"`
	ClaimedAt   time.Time         `bson:"claimed_at"`
	SentAt      time.Time         `bson:"sent_at"`
	LastError   string            `bson:"last_error"`
}

// Queue is the claim side of an outbox.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Observer is told about publish results.
type Observer interface {
	OutboxPublished(n int)
	OutboxFailed()
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Worker forwards outbox records to a producer as CloudEvents.
type Worker struct {
	Queue       Queue
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
	Observer    Observer
	// Trigger, when set, drains immediately instead of waiting for the tick.
	Trigger     <-chan struct{}
}

// Run polls until ctx is done. Each tick drains every claimable record.
func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.Trigger:
		}
		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
			w.logger().ErrorContext(ctx, "outbox drain failed", slog.Any("err", err))
		}
	}
}

// Drain publishes claimable records until none are left and returns how many
// were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for {
		ok, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			return sent, nil
		}
		sent++
	}
}

// processOnce returns false when there was nothing to publish or the record failed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	doc, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, err
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers)
	}
	if err != nil {
		w.logger().WarnContext(ctx, "outbox publish failed",
			slog.String("event_id", doc.ID),
			slog.String("name", doc.Name),
			slog.Int("attempts", doc.Attempts+1),
			slog.Any("err", err))
		if w.Observer != nil {
			w.Observer.OutboxFailed()
		}
		return false, w.Queue.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
	}
	if err := w.Queue.MarkSent(ctx, doc.ID); err != nil {
		return false, err
	}
	if w.Observer != nil {
		w.Observer.OutboxPublished(1)
	}
	return true, nil
}

func (w *Worker) formatPayload(doc *EventDocument) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              doc.ID,
		"type":            doc.Name + ".v1",
		"source":          w.source(),
		"subject":         doc.Aggregate,
		"time":            doc.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_id":        doc.ID,
		"ce_type":      doc.Name + ".v1",
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.confirmed" to "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	return w.TopicPrefix + TopicForEvent(name)
}

func TopicForEvent(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return base + ".events.v1"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://venuebook"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
