package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the Notification aggregate's persistence port.
type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error

	// ExistsForBooking reports whether a notification of kind already
	// exists for (userID, bookingID) — the guard behind
	// dedupedKinds (rate_driver/rate_passenger).
	ExistsForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind Kind) (bool, error)
}
