package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"venuebook/internal/app/outbox"
	"venuebook/internal/app/policies"
	"venuebook/internal/domain/availability"
	domainbooking "venuebook/internal/domain/booking"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/shared/events"
	"venuebook/internal/domain/venues"
)

var (
	ErrViewClosed    = errors.New("booking: venue view closed")
	ErrVenueMismatch = errors.New("booking: request targets another venue")
	ErrStoreMissing  = errors.New("booking: booking store not configured")
)

// Observer receives processor outcomes, typically for metrics.
type Observer interface {
	ObserveOutcome(state domainbooking.State, reason domainbooking.Reason)
	ObserveStoreCall(elapsed time.Duration, err error)
}

// ProcessorConfig carries everything a processor needs for one venue view.
type ProcessorConfig struct {
	VenueID     venues.VenueID
	MaxGuests   int
	Index       *availability.Index
	Store       policies.BookingStorePort
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Observer    Observer
	Logger      *slog.Logger
	Clock       func() time.Time
	IDGenerator func() string
}

// SubmitOptions are caller facts forwarded to the booking store.
type SubmitOptions struct {
	CustomerID     string
	AccessToken    string
	IdempotencyKey string
}

// Outcome is the result of one Submit call.
type Outcome struct {
	LifecycleID string
	State       domainbooking.State
	Failure     domainbooking.Failure
	Range       daterange.DateRange
	Booking     *policies.BookingRecord
	// Discarded is set when the store answered after the view closed or the
	// attempt stopped being the active one. Nothing was applied locally.
	Discarded bool
}

func (o Outcome) Confirmed() bool {
	return o.State == domainbooking.StateConfirmed
}

// RefetchRequired reports whether local availability can no longer be trusted.
func (o Outcome) RefetchRequired() bool {
	return o.State == domainbooking.StateConflictAfterSubmit
}

// Processor validates and submits booking requests for a single venue view.
// At most one submission is in flight at a time.
type Processor struct {
	venueID   venues.VenueID
	maxGuests int
	store     policies.BookingStorePort
	box       outbox.Outbox
	encoder   outbox.EventEncoder
	observer  Observer
	logger    *slog.Logger
	clock     func() time.Time
	newID     func() string

	events.EventRecorder

	mu       sync.Mutex
	index    *availability.Index
	active   *domainbooking.Lifecycle
	inFlight bool
	closed   bool
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	p := &Processor{
		venueID:   cfg.VenueID,
		maxGuests: cfg.MaxGuests,
		store:     cfg.Store,
		box:       cfg.Outbox,
		encoder:   cfg.Encoder,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		newID:     cfg.IDGenerator,
		index:     cfg.Index,
	}
	if p.index == nil {
		p.index = availability.NewIndex(cfg.VenueID)
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

func (p *Processor) VenueID() venues.VenueID {
	return p.venueID
}

func (p *Processor) MaxGuests() int {
	return p.maxGuests
}

// Index returns the current availability snapshot.
func (p *Processor) Index() *availability.Index {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Replace swaps in a freshly fetched index.
func (p *Processor) Replace(index *availability.Index) {
	if index == nil {
		index = availability.NewIndex(p.venueID)
	}
	p.mu.Lock()
	p.index = index
	p.mu.Unlock()
}

// Active returns a snapshot of the most recent lifecycle, if any.
func (p *Processor) Active() (domainbooking.LifecycleSnapshot, bool) {
	p.mu.Lock()
	lc := p.active
	p.mu.Unlock()
	if lc == nil {
		return domainbooking.LifecycleSnapshot{}, false
	}
	return lc.Snapshot(), true
}

func (p *Processor) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

func (p *Processor) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close ends the view. A submission still waiting on the store keeps running
// but its answer is dropped.
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	p.active = nil
	p.mu.Unlock()
}

// Validate runs the pure validation against the current index.
func (p *Processor) Validate(req domainbooking.Request) domainbooking.ValidationResult {
	return domainbooking.Validate(req, p.Index(), p.maxGuests, p.now())
}

// Submit drives one booking attempt through its lifecycle. Expected failures
// are reported in the Outcome; the error is reserved for misuse.
func (p *Processor) Submit(ctx context.Context, req domainbooking.Request, opts SubmitOptions) (Outcome, error) {
	if req.VenueID != "" && req.VenueID != p.venueID {
		return Outcome{}, ErrVenueMismatch
	}
	if p.store == nil {
		return Outcome{}, ErrStoreMissing
	}
	now := p.now()
	lc := domainbooking.NewLifecycle(p.newID(), now)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Outcome{}, ErrViewClosed
	}
	if p.inFlight {
		p.mu.Unlock()
		_ = lc.BeginValidation(now)
		_ = lc.Reject(domainbooking.ReasonAlreadyInProgress, "", now)
		p.logger.InfoContext(ctx, "booking submission ignored while another is in flight",
			slog.String("venue_id", string(p.venueID)),
			slog.String("lifecycle_id", lc.ID()))
		return p.finish(ctx, lc, daterange.DateRange{}, nil), nil
	}
	p.inFlight = true
	p.active = lc
	index := p.index
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	_ = lc.BeginValidation(now)
	result := domainbooking.Validate(req, index, p.maxGuests, now)
	if !result.Valid() {
		_ = lc.Reject(result.Reason, result.Detail, p.now())
		p.Record(domainbooking.BookingRejected{
			LifecycleID: lc.ID(),
			VenueID:     p.venueID,
			Reason:      result.Reason,
			Detail:      result.Detail,
			At:          p.now().UTC(),
		})
		return p.finish(ctx, lc, daterange.DateRange{}, nil), nil
	}

	_ = lc.BeginSubmission(p.now())
	started := time.Now()
	record, err := p.store.CreateBooking(ctx, policies.Submission{
		VenueID:        p.venueID,
		Range:          result.Range,
		Guests:         req.Guests,
		CustomerID:     opts.CustomerID,
		AccessToken:    opts.AccessToken,
		IdempotencyKey: opts.IdempotencyKey,
	})
	if p.observer != nil {
		p.observer.ObserveStoreCall(time.Since(started), err)
	}

	p.mu.Lock()
	if p.closed || p.active != lc {
		p.mu.Unlock()
		p.logger.WarnContext(ctx, "booking store answered for an inactive view, result discarded",
			slog.String("venue_id", string(p.venueID)),
			slog.String("lifecycle_id", lc.ID()),
			slog.Bool("store_failed", err != nil))
		// The lifecycle stays in Submitting: nobody is left to observe its end.
		out := Outcome{LifecycleID: lc.ID(), State: lc.State(), Range: result.Range, Discarded: true}
		if err == nil {
			out.Booking = &record
		}
		return out, nil
	}

	if err != nil {
		p.mu.Unlock()
		detail := policies.StoreMessage(err)
		_ = lc.Reject(domainbooking.ReasonRemoteError, detail, p.now())
		p.Record(domainbooking.BookingRejected{
			LifecycleID: lc.ID(),
			VenueID:     p.venueID,
			Reason:      domainbooking.ReasonRemoteError,
			Detail:      detail,
			At:          p.now().UTC(),
		})
		p.logger.ErrorContext(ctx, "booking store rejected submission",
			slog.String("venue_id", string(p.venueID)),
			slog.String("lifecycle_id", lc.ID()),
			slog.Any("err", err))
		return p.finish(ctx, lc, result.Range, nil), nil
	}

	current := p.index
	next, applyErr := current.WithBooking(result.Range, record.ID)
	switch {
	case applyErr == nil:
		p.index = next
	case holdsOnly(current.Conflicts(result.Range), record.ID):
		// A refetch during the store call already picked up this booking.
		applyErr = nil
	}
	p.mu.Unlock()

	at := p.now()
	if applyErr != nil {
		_ = lc.MarkConflictAfterSubmit(record.ID, at)
		p.Record(domainbooking.ConflictAfterSubmit{
			LifecycleID: lc.ID(),
			BookingID:   record.ID,
			VenueID:     p.venueID,
			Range:       result.Range,
			At:          at.UTC(),
		})
		p.Record(availability.OverbookingPreventedEvent(p.venueID, result.Range, record.ID, current.Conflicts(result.Range), at))
		p.logger.WarnContext(ctx, "store accepted a booking that conflicts locally",
			slog.String("venue_id", string(p.venueID)),
			slog.String("lifecycle_id", lc.ID()),
			slog.String("booking_id", record.ID),
			slog.String("range", result.Range.String()))
		return p.finish(ctx, lc, result.Range, &record), nil
	}

	_ = lc.Confirm(record.ID, at)
	p.Record(domainbooking.BookingConfirmed{
		LifecycleID: lc.ID(),
		BookingID:   record.ID,
		VenueID:     p.venueID,
		Range:       result.Range,
		Guests:      req.Guests,
		At:          at.UTC(),
	})
	p.logger.InfoContext(ctx, "booking confirmed",
		slog.String("venue_id", string(p.venueID)),
		slog.String("lifecycle_id", lc.ID()),
		slog.String("booking_id", record.ID),
		slog.String("range", result.Range.String()))
	return p.finish(ctx, lc, result.Range, &record), nil
}

// holdsOnly reports whether every conflicting block is the booking itself.
func holdsOnly(conflicts []availability.Block, reference string) bool {
	return len(conflicts) > 0 && lo.EveryBy(conflicts, func(b availability.Block) bool {
		return b.Reference == reference
	})
}

func (p *Processor) finish(ctx context.Context, lc *domainbooking.Lifecycle, r daterange.DateRange, record *policies.BookingRecord) Outcome {
	snap := lc.Snapshot()
	out := Outcome{
		LifecycleID: snap.ID,
		State:       snap.State,
		Failure:     snap.Failure,
		Range:       r,
		Booking:     record,
	}
	if p.observer != nil {
		p.observer.ObserveOutcome(out.State, out.Failure.Reason)
	}
	if err := outbox.RecordDomainEvents(ctx, p.box, p.encoder, p.Drain()); err != nil {
		p.logger.ErrorContext(ctx, "record booking events", slog.Any("err", err),
			slog.String("lifecycle_id", snap.ID))
	}
	return out
}

func (p *Processor) now() time.Time {
	return p.clock()
}
