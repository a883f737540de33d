package inbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Deduper remembers event ids a consumer has already handled.
type Deduper interface {
	// Seen records eventID and reports whether it was recorded before.
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Store keeps handled event ids in mongo, one document per consumer and event.
type Store struct {
	col      *mongo.Collection
	consumer string
}

func NewStore(ctx context.Context, db *mongo.Database, consumer string, retention time.Duration) (*Store, error) {
	col := db.Collection("view_inbox")
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if retention > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, err
	}
	return &Store{col: col, consumer: consumer}, nil
}

func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": s.consumer, "received_at": time.Now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

var _ Deduper = (*Store)(nil)
