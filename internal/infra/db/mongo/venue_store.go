package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"venuebook/internal/app/policies"
	"venuebook/internal/domain/shared/daterange"
	"venuebook/internal/domain/venues"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

const maxBookingAttempts = 3

// VenueStore keeps each venue and its bookings in one versioned document.
// A booking is appended only if the version read is still current, so two
// overlapping submissions can never both be written.
type VenueStore struct {
	col   *mongo.Collection
	now   func() time.Time
	newID func() string
}

func NewVenueStore(ctx context.Context, db *mongo.Database) (*VenueStore, error) {
	col := db.Collection("venue_calendar")
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}}}); err != nil {
		return nil, err
	}
	return &VenueStore{col: col, now: time.Now, newID: uuid.NewString}, nil
}

func (s *VenueStore) Venue(ctx context.Context, id venues.VenueID) (venues.Venue, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return venues.Venue{}, err
	}
	return doc.toVenue(), nil
}

// Put upserts venue facts. Stored bookings are kept unless the document is new.
func (s *VenueStore) Put(ctx context.Context, v venues.Venue) error {
	if err := v.Validate(); err != nil {
		return err
	}
	doc := newVenueDocument(v)
	update := bson.M{
		"$set": bson.M{
			"name":       doc.Name,
			"owner":      doc.Owner,
			"max_guests": doc.MaxGuests,
			"price":      doc.Price,
		},
		"$setOnInsert": bson.M{"bookings": doc.Bookings, "version": int64(0)},
	}
	_, err := s.col.UpdateByID(ctx, doc.ID, update, options.Update().SetUpsert(true))
	return err
}

func (s *VenueStore) CreateBooking(ctx context.Context, sub policies.Submission) (policies.BookingRecord, error) {
	for attempt := 0; attempt < maxBookingAttempts; attempt++ {
		doc, err := s.load(ctx, sub.VenueID)
		if errors.Is(err, venues.ErrVenueNotFound) {
			return policies.BookingRecord{}, &policies.StoreError{Status: http.StatusNotFound, Message: "No venue with such ID"}
		}
		if err != nil {
			return policies.BookingRecord{}, err
		}
		rec := policies.BookingRecord{
			ID:        s.newID(),
			VenueID:   sub.VenueID,
			Range:     sub.Range,
			Guests:    sub.Guests,
			Customer:  sub.CustomerID,
			CreatedAt: s.now().UTC(),
		}
		entry, err := admitBooking(doc, rec)
		if err != nil {
			return policies.BookingRecord{}, err
		}
		res, err := s.col.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "version": doc.Version},
			bson.M{"$push": bson.M{"bookings": entry}, "$inc": bson.M{"version": 1}})
		if err != nil {
			return policies.BookingRecord{}, err
		}
		if res.MatchedCount == 1 {
			return rec, nil
		}
	}
	return policies.BookingRecord{}, &policies.StoreError{
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("Venue calendar is changing too fast: %v", ErrConcurrentUpdate),
	}
}

func (s *VenueStore) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}

func (s *VenueStore) load(ctx context.Context, id venues.VenueID) (venueDocument, error) {
	var doc venueDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return venueDocument{}, venues.ErrVenueNotFound
		}
		return venueDocument{}, err
	}
	return doc, nil
}

// admitBooking checks rec against the stored calendar and returns the entry to append.
func admitBooking(doc venueDocument, rec policies.BookingRecord) (bookingEntry, error) {
	if rec.Guests < 1 || rec.Guests > doc.MaxGuests {
		return bookingEntry{}, &policies.StoreError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Guests must be between 1 and %d", doc.MaxGuests),
		}
	}
	for _, b := range doc.Bookings {
		existing, err := daterange.Parse(b.From, b.To)
		if err == nil && existing.Overlaps(rec.Range) {
			return bookingEntry{}, &policies.StoreError{
				Status:  http.StatusConflict,
				Message: "The venue is already booked for the selected dates",
			}
		}
	}
	return bookingEntry{
		ID:        rec.ID,
		From:      rec.Range.Start.Format(daterange.DayLayout),
		To:        rec.Range.End.Format(daterange.DayLayout),
		Guests:    rec.Guests,
		Customer:  rec.Customer,
		CreatedAt: rec.CreatedAt,
	}, nil
}

type venueDocument struct {
	ID        string         `bson:"_id"`
	Name      string         `bson:"name"`
	Owner     string         `bson:"owner"`
	MaxGuests int            `bson:"max_guests"`
	Price     float64        `bson:"price"`
	Bookings  []bookingEntry `bson:"bookings"`
	Version   int64          `bson:"version"`
}

type bookingEntry struct {
	ID        string    `bson:"id"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Guests    int       `bson:"guests"`
	Customer  string    `bson:"customer,omitempty"`
	CreatedAt time.Time `bson:"created_at,omitempty"`
}

func newVenueDocument(v venues.Venue) venueDocument {
	doc := venueDocument{
		ID:        string(v.ID),
		Name:      v.Name,
		Owner:     string(v.Owner),
		MaxGuests: v.MaxGuests,
		Price:     v.Price,
		Bookings:  make([]bookingEntry, 0, len(v.Bookings)),
	}
	for _, b := range v.Bookings {
		doc.Bookings = append(doc.Bookings, bookingEntry{ID: b.ID, From: b.DateFrom, To: b.DateTo, Guests: b.Guests, Customer: b.Customer})
	}
	return doc
}

func (d venueDocument) toVenue() venues.Venue {
	v := venues.Venue{
		ID:        venues.VenueID(d.ID),
		Name:      d.Name,
		Owner:     venues.OwnerID(d.Owner),
		MaxGuests: d.MaxGuests,
		Price:     d.Price,
		Bookings:  make([]venues.Booking, 0, len(d.Bookings)),
	}
	for _, b := range d.Bookings {
		v.Bookings = append(v.Bookings, venues.Booking{ID: b.ID, DateFrom: b.From, DateTo: b.To, Guests: b.Guests, Customer: b.Customer})
	}
	return v
}

var (
	_ venues.Directory          = (*VenueStore)(nil)
	_ policies.BookingStorePort = (*VenueStore)(nil)
)
