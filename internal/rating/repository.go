package rating

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"airpool/internal/clock"
)

var ErrDuplicateRating = errors.New("rating already exists for this booking")

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("ratings"), clock: c}
}

func (r *repository) Create(ctx context.Context, rt *Rating) (*Rating, error) {
	rt.ID = primitive.NewObjectID()
	rt.CreatedAt = r.clock.Now()

	if _, err := r.col.InsertOne(ctx, rt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRating
		}
		return nil, err
	}
	return rt, nil
}

func (r *repository) ExistsForBooking(ctx context.Context, bookingID, fromUserID primitive.ObjectID) (bool, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"bookingId": bookingID, "fromUserId": fromUserID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Stats(ctx context.Context, userID primitive.ObjectID) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"toUserId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$toUserId",
			"mean":  bson.M{"$avg": "$stars"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		Mean  float64 `bson:"mean"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return Stats{}, err
	}
	if len(docs) == 0 {
		return Stats{UserID: userID}, nil
	}
	return Stats{UserID: userID, Mean: docs[0].Mean, Count: docs[0].Count}, nil
}
