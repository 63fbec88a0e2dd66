package request

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the RideRequest+Offer aggregate's persistence port.
// Offer accept/reject-siblings is the one place this package needs
// cross-document atomicity, handled by AcceptOfferAtomic rather than
// by exposing a generic multi-document transaction to Service.
type Repository interface {
	CreateRequest(ctx context.Context, r *RideRequest) (*RideRequest, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*RideRequest, error)
	ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]RideRequest, int64, error)
	TransitionRequest(ctx context.Context, id primitive.ObjectID, from, to Status) (*RideRequest, error)

	// SweepExpirable returns ids of pending requests whose expiresAt
	// has passed, for the expiry sweep.
	SweepExpirable(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error)
	ExpireOne(ctx context.Context, id primitive.ObjectID) error

	Search(ctx context.Context, f SearchFilter, requestingDriverID primitive.ObjectID, page, limit int) ([]Summary, int64, error)

	CreateOffer(ctx context.Context, o *Offer) (*Offer, error)
	FindOfferByID(ctx context.Context, id primitive.ObjectID) (*Offer, error)
	ListOffersByRequest(ctx context.Context, requestID primitive.ObjectID) ([]Offer, error)
	ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Offer, int64, error)
	WithdrawOffer(ctx context.Context, offerID, driverID primitive.ObjectID) error
	// RejectOffer is the passenger-initiated counterpart to
	// WithdrawOffer: no driver ownership check, since the caller
	// already verified the requesting passenger owns the request.
	RejectOffer(ctx context.Context, offerID primitive.ObjectID) error

	// AcceptOfferAtomic marks chosen accepted, every other pending
	// offer on the same request rejected, and the request itself
	// matched, in one multi-document transaction (spec.md's I6).
	AcceptOfferAtomic(ctx context.Context, chosen *Offer, driverID, rideID primitive.ObjectID, amountGross int64) (*RideRequest, []Offer, error)
}
