package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"venuebook/internal/app/outbox"
	"venuebook/internal/app/policies"
	"venuebook/internal/domain/availability"
	"venuebook/internal/domain/venues"
)

var ErrSessionRequired = errors.New("booking: session id required")

type ViewKey struct {
	Session string
	VenueID venues.VenueID
}

// View is one session's open venue page: the venue facts as fetched and the
// processor owning its availability.
type View struct {
	Key       ViewKey
	Venue     venues.Venue
	Processor *Processor
	OpenedAt  time.Time

	lastSeen atomic.Int64
	stale    atomic.Bool
}

// Stale reports that another instance booked this venue since it was fetched.
func (v *View) Stale() bool {
	return v.stale.Load()
}

func (v *View) touch(now time.Time) {
	v.lastSeen.Store(now.UnixNano())
}

func (v *View) idleSince() time.Time {
	return time.Unix(0, v.lastSeen.Load())
}

type ViewsConfig struct {
	Directory venues.Directory
	Store     policies.BookingStorePort
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
	Observer  Observer
	Logger    *slog.Logger
	Clock     func() time.Time
	// TTL bounds how long an untouched view stays open. Zero keeps views
	// until closed.
	TTL time.Duration
}

// Views tracks open venue views per session. Every Open fetches the venue
// again; nothing is cached across views.
type Views struct {
	cfg ViewsConfig

	mu    sync.Mutex
	views map[ViewKey]*View
}

func NewViews(cfg ViewsConfig) *Views {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Views{cfg: cfg, views: make(map[ViewKey]*View)}
}

// Open fetches the venue and (re)builds the session's view of it. Reopening
// an existing view refreshes its index in place so a submission in flight
// keeps its guard.
func (v *Views) Open(ctx context.Context, session string, id venues.VenueID) (*View, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	if v.cfg.Directory == nil {
		return nil, errors.New("booking: venue directory not configured")
	}
	venue, err := v.cfg.Directory.Venue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open venue %s: %w", id, err)
	}
	if err := venue.Validate(); err != nil {
		return nil, fmt.Errorf("open venue %s: %w", id, err)
	}
	index := availability.FromBookings(id, venue.Bookings, v.cfg.Logger)
	now := v.cfg.Clock()
	key := ViewKey{Session: session, VenueID: id}

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.views[key]; ok {
		if existing.Venue.MaxGuests == venue.MaxGuests && !existing.Processor.Closed() {
			existing.Processor.Replace(index)
			refreshed := &View{Key: key, Venue: venue, Processor: existing.Processor, OpenedAt: existing.OpenedAt}
			refreshed.touch(now)
			v.views[key] = refreshed
			return refreshed, nil
		}
		existing.Processor.Close()
	}
	view := &View{
		Key:      key,
		Venue:    venue,
		OpenedAt: now,
		Processor: NewProcessor(ProcessorConfig{
			VenueID:   id,
			MaxGuests: venue.MaxGuests,
			Index:     index,
			Store:     v.cfg.Store,
			Outbox:    v.cfg.Outbox,
			Encoder:   v.cfg.Encoder,
			Observer:  v.cfg.Observer,
			Logger:    v.cfg.Logger,
			Clock:     v.cfg.Clock,
		}),
	}
	view.touch(now)
	v.views[key] = view
	v.cfg.Logger.DebugContext(ctx, "venue view opened",
		slog.String("session_id", session),
		slog.String("venue_id", string(id)),
		slog.Int("bookings", index.Len()))
	return view, nil
}

func (v *Views) Get(session string, id venues.VenueID) (*View, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	view, ok := v.views[ViewKey{Session: session, VenueID: id}]
	if ok {
		view.touch(v.cfg.Clock())
	}
	return view, ok
}

// Acquire returns the open view or opens one.
func (v *Views) Acquire(ctx context.Context, session string, id venues.VenueID) (*View, error) {
	if view, ok := v.Get(session, id); ok {
		return view, nil
	}
	return v.Open(ctx, session, id)
}

// Close ends a view. Late store answers for it are discarded.
func (v *Views) Close(session string, id venues.VenueID) bool {
	key := ViewKey{Session: session, VenueID: id}
	v.mu.Lock()
	view, ok := v.views[key]
	delete(v.views, key)
	v.mu.Unlock()
	if ok {
		view.Processor.Close()
	}
	return ok
}

func (v *Views) CloseSession(session string) int {
	return v.closeWhere(func(view *View) bool { return view.Key.Session == session })
}

// Sweep closes views untouched for longer than the TTL.
func (v *Views) Sweep(now time.Time) int {
	if v.cfg.TTL <= 0 {
		return 0
	}
	cutoff := now.Add(-v.cfg.TTL)
	return v.closeWhere(func(view *View) bool {
		return view.idleSince().Before(cutoff) && !view.Processor.InFlight()
	})
}

// MarkStale flags every open view of the venue except the one whose latest
// attempt is originLifecycle; that view already holds the booking.
func (v *Views) MarkStale(id venues.VenueID, originLifecycle string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for key, view := range v.views {
		if key.VenueID != id {
			continue
		}
		if originLifecycle != "" {
			if snap, ok := view.Processor.Active(); ok && snap.ID == originLifecycle {
				continue
			}
		}
		view.stale.Store(true)
		n++
	}
	return n
}

func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.views)
}

func (v *Views) closeWhere(match func(*View) bool) int {
	v.mu.Lock()
	var closed []*View
	for key, view := range v.views {
		if match(view) {
			closed = append(closed, view)
			delete(v.views, key)
		}
	}
	v.mu.Unlock()
	for _, view := range closed {
		view.Processor.Close()
	}
	return len(closed)
}
