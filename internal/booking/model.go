// Package booking implements spec.md §4.5's BookingEngine: the ride
// lifecycle, the passenger-on-ride claim state machine, capacity
// reservation and the refund fan-out on cancellation.
package booking

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/ride"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodWallet PaymentMethod = "wallet"
	MethodNone   PaymentMethod = "none"
)

type RefundReason string

const (
	RefundPassengerCancelled RefundReason = "passengerCancelled"
	RefundDriverCancelled    RefundReason = "driverCancelled"
	RefundRideCancelled      RefundReason = "rideCancelled"
	RefundAdminAction        RefundReason = "adminAction"
)

// Booking is spec.md §3's passenger-on-ride claim. AmountGross is not
// named explicitly in spec.md's field list, but a refund needs to know
// how much was originally charged even if the ride's pricePerSeat
// changes later, so the amount actually charged is captured at
// creation time rather than recomputed from the (mutable) ride.
type Booking struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RideID      primitive.ObjectID `bson:"rideId" json:"rideId"`
	PassengerID primitive.ObjectID `bson:"passengerId" json:"passengerId"`
	Seats       int                `bson:"seats" json:"seats"`
	Luggage     int                `bson:"luggage" json:"luggage"`
	Status      Status             `bson:"status" json:"status"`

	Pickup  *ride.Point `bson:"pickup,omitempty" json:"pickup,omitempty"`
	Dropoff *ride.Point `bson:"dropoff,omitempty" json:"dropoff,omitempty"`

	PaymentStatus PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	AmountGross   int64         `bson:"amountGross,omitempty" json:"amountGross,omitempty"`
	PSPIntentID   string        `bson:"pspIntentId,omitempty" json:"pspIntentId,omitempty"`
	RefundID      string        `bson:"refundId,omitempty" json:"refundId,omitempty"`
	RefundedAt    *time.Time    `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
	RefundReason  RefundReason  `bson:"refundReason,omitempty" json:"refundReason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CreateBookingRequest struct {
	// RideID is only read when the handler has no :rideId path
	// segment to fall back to (the top-level /payments/* aliases).
	RideID  string      `json:"rideId,omitempty"`
	Seats   int         `json:"seats" binding:"required,min=1"`
	Luggage int         `json:"luggage" binding:"min=0"`
	Pickup  *ride.Point `json:"pickup,omitempty"`
	Dropoff *ride.Point `json:"dropoff,omitempty"`
}

type TransitionRequest struct {
	Status Status `json:"status" binding:"required"`
}

type UpdateSeatsRequest struct {
	Seats   int `json:"seats" binding:"required,min=1"`
	Luggage int `json:"luggage" binding:"min=0"`
}

type CompletePaymentRequest struct {
	IntentID string `json:"intentId" binding:"required"`
}
