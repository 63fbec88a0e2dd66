package booking

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

var (
	ErrNotFound      = errors.New("booking not found")
	ErrDuplicate     = errors.New("passenger already has a booking on this ride")
	ErrTransitionRejected = errors.New("booking not in the expected status")
)

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("bookings"), clock: c}
}

func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	now := r.clock.Now()
	b.ID = primitive.NewObjectID()
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return b, nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	var b Booking
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*Booking, error) {
	var b Booking
	err := r.col.FindOne(ctx, bson.M{"rideId": rideID, "passengerId": passengerID}).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindByPSPIntentID(ctx context.Context, intentID string) (*Booking, error) {
	var b Booking
	err := r.col.FindOne(ctx, bson.M{"pspIntentId": intentID}).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	return r.list(ctx, bson.M{"passengerId": passengerID}, page, limit)
}

func (r *repository) ListByRide(ctx context.Context, rideID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	return r.list(ctx, bson.M{"rideId": rideID}, page, limit)
}

func (r *repository) list(ctx context.Context, filter bson.M, page, limit int) ([]Booking, int64, error) {
	skip, lim := mongoutil.Page(page, limit)

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

	var bookings []Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Transition is the compare-and-swap every state change in the
// BookingEngine goes through: it only succeeds if the document is
// still in `from`, so two concurrent actors (a driver accepting while
// a passenger cancels) can never both win.
func (r *repository) Transition(ctx context.Context, id primitive.ObjectID, from, to Status) (*Booking, error) {
	var b Booking
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": r.clock.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransitionRejected
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) UpdateSeats(ctx context.Context, id, passengerID primitive.ObjectID, seats, luggage int) (*Booking, error) {
	var b Booking
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "passengerId": passengerID, "status": StatusPending},
		bson.M{"$set": bson.M{"seats": seats, "luggage": luggage, "updatedAt": r.clock.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransitionRejected
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) SetPaid(ctx context.Context, id primitive.ObjectID, method PaymentMethod, pspIntentID string, grossAmount int64) error {
	set := bson.M{
		"status":        StatusAccepted,
		"paymentStatus": PaymentPaid,
		"paymentMethod": method,
		"amountGross":   grossAmount,
		"updatedAt":     r.clock.Now(),
	}
	if pspIntentID != "" {
		set["pspIntentId"] = pspIntentID
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *repository) SetPaymentFailed(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"paymentStatus": PaymentFailed, "updatedAt": r.clock.Now(),
	}})
	return err
}

func (r *repository) SetRefunded(ctx context.Context, id primitive.ObjectID, refundID string, reason RefundReason) error {
	now := r.clock.Now()
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"paymentStatus": PaymentRefunded,
		"refundId":      refundID,
		"refundReason":  reason,
		"refundedAt":    now,
		"updatedAt":     now,
	}})
	return err
}
