package chat

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
	return &repository{col: db.Collection("messages"), clock: c}
}

func (r *repository) Create(ctx context.Context, m *Message) (*Message, error) {
	m.ID = primitive.NewObjectID()
	m.CreatedAt = r.clock.Now()
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *repository) ListByThread(ctx context.Context, kind ThreadKind, threadID primitive.ObjectID, page, limit int) ([]Message, int64, error) {
	filter := bson.M{"threadKind": kind, "threadId": threadID}
	skip, lim := mongoutil.Page(page, limit)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
