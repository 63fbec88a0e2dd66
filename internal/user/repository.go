package user

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"airpool/internal/clock"
)

var ErrUserNotFound = errors.New("user not found")

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("users"), clock: c}
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	now := r.clock.Now()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
	u.ID = primitive.NewObjectID()

	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.col.FindOne(ctx, bson.M{"email": strings.ToLower(email), "softDeletedAt": bson.M{"$exists": false}}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var u User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) UpdateConnectedAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"connectedPayoutAccountId": accountID,
		"updatedAt":                r.clock.Now(),
	}})
	return err
}

// ApplyRating folds a new star rating into the running mean using the
// standard incremental-mean update: mean' = mean + (stars - mean)/(count+1).
// Mongo's atomic arithmetic operators can't express that in one
// document update, so it's done with a short read-then-conditional-
// write retry loop keyed on the previous count (optimistic lock).
func (r *repository) ApplyRating(ctx context.Context, id primitive.ObjectID, stars int) error {
	for attempt := 0; attempt < 5; attempt++ {
		var u User
		if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
			return err
		}
		newCount := u.RatingCount + 1
		newMean := u.RatingMean + (float64(stars)-u.RatingMean)/float64(newCount)

		res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "ratingCount": u.RatingCount}, bson.M{"$set": bson.M{
			"ratingMean":  newMean,
			"ratingCount": newCount,
			"updatedAt":   r.clock.Now(),
		}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
		// lost the race against a concurrent rating; retry with fresh count.
	}
	return errors.New("apply rating: too many concurrent updates")
}

func (r *repository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := r.clock.Now()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"softDeletedAt": now, "updatedAt": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
