package payout

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"airpool/internal/clock"
	"airpool/internal/mongoutil"
)

var ErrNotFound = errors.New("payout not found")

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("payouts"), clock: c}
}

func (r *repository) Create(ctx context.Context, p *Payout) (*Payout, error) {
	now := r.clock.Now()
	p.ID = primitive.NewObjectID()
	p.Status = StatusPending
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) findOne(ctx context.Context, filter bson.M) (*Payout, error) {
	var p Payout
	err := r.col.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Payout, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *repository) FindByTransactionID(ctx context.Context, txID primitive.ObjectID) (*Payout, error) {
	return r.findOne(ctx, bson.M{"transactionId": txID})
}

func (r *repository) FindByPSPTransferID(ctx context.Context, transferID string) (*Payout, error) {
	return r.findOne(ctx, bson.M{"pspTransferId": transferID})
}

func (r *repository) FindByPSPPayoutID(ctx context.Context, payoutID string) (*Payout, error) {
	return r.findOne(ctx, bson.M{"pspPayoutId": payoutID})
}

func (r *repository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Payout, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	filter := bson.M{"userId": userID}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Payout
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) AttachTransfer(ctx context.Context, id primitive.ObjectID, transferID string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"pspTransferId": transferID, "status": StatusProcessing, "updatedAt": r.clock.Now(),
	}})
	return err
}

func (r *repository) MarkProcessing(ctx context.Context, id primitive.ObjectID, payoutID string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"pspPayoutId": payoutID, "status": StatusProcessing, "updatedAt": r.clock.Now(),
	}})
	return err
}

func (r *repository) MarkCompleted(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status": StatusCompleted, "updatedAt": r.clock.Now(),
	}})
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status": StatusFailed, "failureReason": reason, "updatedAt": r.clock.Now(),
	}})
	return err
}
