// Package rating implements spec.md §3's Rating entity and §4.9's
// RatingScheduler: the periodic sweep that prompts both sides of a
// completed ride to rate each other, and the CRUD surface backing it.
package rating

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Type string

const (
	TypeDriverToPassenger Type = "driver->passenger"
	TypePassengerToDriver Type = "passenger->driver"
)

// Rating is spec.md §3's Rating entity. Uniqueness on
// (bookingId, fromUserId) is enforced by a database index, not by
// this package — see internal/db.EnsureIndexes.
type Rating struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromUserID primitive.ObjectID `bson:"fromUserId" json:"fromUserId"`
	ToUserID   primitive.ObjectID `bson:"toUserId" json:"toUserId"`
	BookingID  primitive.ObjectID `bson:"bookingId" json:"bookingId"`
	RideID     primitive.ObjectID `bson:"rideId" json:"rideId"`
	Type       Type               `bson:"type" json:"type"`
	Stars      int                `bson:"stars" json:"stars"`
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

type CreateRatingRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Stars     int    `json:"stars" binding:"required,min=1,max=5"`
	Comment   string `json:"comment,omitempty"`
}

// Stats is the aggregate spec.md §6's GET /ratings/stats/:userId
// returns, mirroring the running mean/count already cached on User.
type Stats struct {
	UserID primitive.ObjectID `json:"userId"`
	Mean   float64            `json:"mean"`
	Count  int64              `json:"count"`
}

// PendingPrompt is one rateable booking surfaced by
// GET /ratings/pending: a ride the caller took part in, past the
// rateable window, that they have not yet rated.
type PendingPrompt struct {
	BookingID   primitive.ObjectID `json:"bookingId"`
	RideID      primitive.ObjectID `json:"rideId"`
	Counterpart primitive.ObjectID `json:"counterpartUserId"`
	Type        Type               `json:"type"`
	DepartureAt time.Time          `json:"departureAt"`
}
