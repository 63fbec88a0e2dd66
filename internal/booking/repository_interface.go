package booking

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the Booking aggregate's persistence port. It never
// touches ride capacity itself — Service is the only caller allowed to
// pair a Repository write with a ride.Repository.TryReserve/Release
// call, and it does so as an ordered sequence with compensating undo
// rather than a single cross-collection transaction.
type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	FindByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*Booking, error)
	ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]Booking, int64, error)
	ListByRide(ctx context.Context, rideID primitive.ObjectID, page, limit int) ([]Booking, int64, error)
	FindByPSPIntentID(ctx context.Context, intentID string) (*Booking, error)

	// Transition is a conditional FindOneAndUpdate on (_id, status=from):
	// the sole compare-and-swap primitive the state machine is built on.
	Transition(ctx context.Context, id primitive.ObjectID, from, to Status) (*Booking, error)

	// UpdateSeats is only legal while a booking is still pending, since
	// capacity hasn't been reserved yet.
	UpdateSeats(ctx context.Context, id, passengerID primitive.ObjectID, seats, luggage int) (*Booking, error)

	SetPaid(ctx context.Context, id primitive.ObjectID, method PaymentMethod, pspIntentID string, grossAmount int64) error
	SetPaymentFailed(ctx context.Context, id primitive.ObjectID) error
	SetRefunded(ctx context.Context, id primitive.ObjectID, refundID string, reason RefundReason) error
}
