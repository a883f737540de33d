package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"venuebook/internal/domain/venues"
	"venuebook/internal/infra/inbox"
	"venuebook/internal/infra/outbox"
)

// StaleMarker flags open views of a venue as out of date.
type StaleMarker interface {
	MarkStale(id venues.VenueID, originLifecycle string) int
}

// StaleObserver counts views flagged by incoming events.
type StaleObserver interface {
	ViewsMarkedStale(n int)
}

var ErrMalformedEvent = errors.New("kafka: malformed booking event")

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type venueEventData struct {
	VenueID     string `json:"venue_id"`
	LifecycleID string `json:"lifecycle_id"`
}

// StaleViewsHandler turns booking events from any instance into stale flags on
// the open views of this one.
type StaleViewsHandler struct {
	Views    StaleMarker
	Inbox    inbox.Deduper
	Observer StaleObserver
	Logger   *slog.Logger
}

func (h *StaleViewsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return h.HandlePayload(ctx, msg.Value)
}

// HandlePayload applies one CloudEvent. Events that do not change what is
// booked are ignored. Repeated event ids are ignored when an inbox is set.
func (h *StaleViewsHandler) HandlePayload(ctx context.Context, payload []byte) error {
	var evt cloudEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	name := strings.TrimSuffix(evt.Type, ".v1")
	if !marksStale(name) {
		return nil
	}
	var data venueEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil || data.VenueID == "" {
		return fmt.Errorf("%w: %s without venue", ErrMalformedEvent, evt.Type)
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	// Only a confirmation leaves the originating view consistent; it already
	// applied the booking to its own index.
	origin := ""
	if name == "booking.confirmed" {
		origin = data.LifecycleID
	}
	n := h.Views.MarkStale(venues.VenueID(data.VenueID), origin)
	if n > 0 {
		if h.Observer != nil {
			h.Observer.ViewsMarkedStale(n)
		}
		h.logger().DebugContext(ctx, "views marked stale",
			slog.String("venue_id", data.VenueID),
			slog.String("event", name),
			slog.Int("views", n))
	}
	return nil
}

func marksStale(name string) bool {
	switch name {
	case "booking.confirmed", "booking.conflict_after_submit", "availability.overbooking_prevented":
		return true
	}
	return false
}

func (h *StaleViewsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Loopback is an outbox producer that delivers straight to a local handler.
// It stands in for the broker on a single instance.
type Loopback struct {
	Handler *StaleViewsHandler
}

func (l Loopback) Publish(ctx context.Context, _ string, _ string, payload []byte, _ map[string]string) error {
	return l.Handler.HandlePayload(ctx, payload)
}

// Topics lists the topics carrying events the handler reacts to.
func Topics(prefix string) []string {
	return []string{
		prefix + outbox.TopicForEvent("booking.confirmed"),
		prefix + outbox.TopicForEvent("availability.overbooking_prevented"),
	}
}

var (
	_ MessageHandler  = (*StaleViewsHandler)(nil)
	_ outbox.Producer = Loopback{}
)
