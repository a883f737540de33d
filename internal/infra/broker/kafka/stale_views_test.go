package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/internal/domain/venues"
	"venuebook/internal/infra/inbox"
)

type staleCall struct {
	venue  venues.VenueID
	origin string
}

type recordingViews struct {
	calls []staleCall
}

func (r *recordingViews) MarkStale(id venues.VenueID, origin string) int {
	r.calls = append(r.calls, staleCall{venue: id, origin: origin})
	return 2
}

type staleTally struct{ n int }

func (s *staleTally) ViewsMarkedStale(n int) { s.n += n }

func event(t *testing.T, id, typ string, data map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": id, "type": typ, "data": data})
	require.NoError(t, err)
	return raw
}

func TestStaleViewsHandlerMarksVenues(t *testing.T) {
	views := &recordingViews{}
	obs := &staleTally{}
	h := &StaleViewsHandler{Views: views, Inbox: inbox.NewMemory(10), Observer: obs}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, &sarama.ConsumerMessage{
		Value: event(t, "e1", "booking.confirmed.v1", map[string]any{"venue_id": "venue-1", "lifecycle_id": "lc-1"}),
	}))
	require.NoError(t, h.HandlePayload(ctx,
		event(t, "e2", "booking.conflict_after_submit.v1", map[string]any{"venue_id": "venue-1", "lifecycle_id": "lc-2"})))
	require.NoError(t, h.HandlePayload(ctx,
		event(t, "e3", "availability.overbooking_prevented.v1", map[string]any{"venue_id": "venue-2"})))

	assert.Equal(t, []staleCall{
		{venue: "venue-1", origin: "lc-1"},
		{venue: "venue-1", origin: ""},
		{venue: "venue-2", origin: ""},
	}, views.calls)
	assert.Equal(t, 6, obs.n)
}

func TestStaleViewsHandlerIgnoresDuplicatesAndOtherEvents(t *testing.T) {
	views := &recordingViews{}
	h := &StaleViewsHandler{Views: views, Inbox: inbox.NewMemory(10)}
	ctx := context.Background()
	confirmed := event(t, "e1", "booking.confirmed.v1", map[string]any{"venue_id": "venue-1"})

	require.NoError(t, h.HandlePayload(ctx, confirmed))
	require.NoError(t, h.HandlePayload(ctx, confirmed))
	require.NoError(t, h.HandlePayload(ctx, event(t, "e2", "booking.rejected.v1", map[string]any{"venue_id": "venue-1"})))
	assert.Len(t, views.calls, 1)

	assert.ErrorIs(t, h.HandlePayload(ctx, []byte("{")), ErrMalformedEvent)
	assert.ErrorIs(t, h.HandlePayload(ctx, event(t, "e3", "booking.confirmed.v1", map[string]any{})), ErrMalformedEvent)
}

func TestLoopbackDeliversLocally(t *testing.T) {
	views := &recordingViews{}
	lb := Loopback{Handler: &StaleViewsHandler{Views: views}}

	err := lb.Publish(context.Background(), "booking.events.v1", "venue-1",
		event(t, "e1", "booking.confirmed.v1", map[string]any{"venue_id": "venue-1"}), nil)
	require.NoError(t, err)
	assert.Len(t, views.calls, 1)
	assert.Equal(t, []string{"dev.booking.events.v1", "dev.availability.events.v1"}, Topics("dev."))
}
