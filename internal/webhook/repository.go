package webhook

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"airpool/internal/clock"
)

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("webhookEvents"), clock: c}
}

// Record inserts the event id and returns true, or returns false
// without error if it is a duplicate key, i.e. this event was already
// seen.
func (r *repository) Record(ctx context.Context, pspEventID, eventType string) (bool, error) {
	_, err := r.col.InsertOne(ctx, Event{
		ID:         primitive.NewObjectID(),
		PSPEventID: pspEventID,
		Type:       eventType,
		ReceivedAt: r.clock.Now(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) MarkProcessed(ctx context.Context, pspEventID string) error {
	now := r.clock.Now()
	_, err := r.col.UpdateOne(ctx, bson.M{"eventId": pspEventID}, bson.M{"$set": bson.M{"processedAt": now}})
	return err
}

func (r *repository) MarkFailed(ctx context.Context, pspEventID, reason string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"eventId": pspEventID}, bson.M{"$set": bson.M{"error": reason}})
	return err
}
