package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"airpool/internal/clock"
	"airpool/internal/mongoutil"
)

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("notifications"), clock: c}
}

func (r *repository) Create(ctx context.Context, n *Notification) (*Notification, error) {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = r.clock.Now()
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *repository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Notification, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	filter := bson.M{"userId": userID}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var notifications []Notification
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *repository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}})
	return err
}

func (r *repository) ExistsForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind Kind) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"userId":         userID,
		"kind":           kind,
		"payload.bookingId": bookingID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
