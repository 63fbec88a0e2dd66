package rating

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the Rating aggregate's persistence port.
type Repository interface {
	Create(ctx context.Context, r *Rating) (*Rating, error)
	ExistsForBooking(ctx context.Context, bookingID, fromUserID primitive.ObjectID) (bool, error)
	Stats(ctx context.Context, userID primitive.ObjectID) (Stats, error)
}
