// Package request implements spec.md §4.6's RequestEngine: a
// passenger broadcast for a ride nobody has published yet, the
// driver offers made against it, and the accept-with-payment path
// that turns exactly one offer into a paid, matched request.
package request

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/ride"
)

type Direction string

const (
	DirectionToAirport   Direction = "to_airport"
	DirectionFromAirport Direction = "from_airport"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Location is the passenger's pickup/dropoff point, GeoJSON-shaped so
// it can carry the same 2dsphere index ride.Point does.
type Location struct {
	Address  string  `bson:"address" json:"address"`
	City     string  `bson:"city" json:"city"`
	Postcode string  `bson:"postcode,omitempty" json:"postcode,omitempty"`
	Point    ride.Point `bson:"point" json:"point"`
}

func (l Location) Lat() float64 { return l.Point.Lat() }
func (l Location) Lon() float64 { return l.Point.Lon() }

// RideRequest is spec.md §3's passenger broadcast. Offer lives in its
// own top-level collection (see internal/db's index set) rather than
// truly embedded, so MakeOffer/AcceptOffer can use per-offer CAS
// writes instead of positional array updates on a growing document.
type RideRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PassengerID primitive.ObjectID `bson:"passengerId" json:"passengerId"`
	AirportID   primitive.ObjectID `bson:"airportId" json:"airportId"`
	Direction   Direction          `bson:"direction" json:"direction"`
	Location    Location           `bson:"location" json:"location"`

	PreferredAt         time.Time `bson:"preferredAt" json:"preferredAt"`
	FlexibilityMinutes  int       `bson:"flexibilityMinutes" json:"flexibilityMinutes"`
	SeatsNeeded         int       `bson:"seatsNeeded" json:"seatsNeeded"`
	Luggage             int       `bson:"luggage" json:"luggage"`
	MaxPricePerSeat     *int64    `bson:"maxPricePerSeat,omitempty" json:"maxPricePerSeat,omitempty"`
	Notes               string    `bson:"notes,omitempty" json:"notes,omitempty"`

	Status          Status             `bson:"status" json:"status"`
	MatchedDriverID primitive.ObjectID `bson:"matchedDriverId,omitempty" json:"matchedDriverId,omitempty"`
	MatchedRideID   primitive.ObjectID `bson:"matchedRideId,omitempty" json:"matchedRideId,omitempty"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	// AmountGross mirrors booking.Booking's own field: captured at
	// accept time so a later refund doesn't depend on a mutable offer.
	AmountGross int64 `bson:"amountGross,omitempty" json:"amountGross,omitempty"`

	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Summary annotates a RideRequest with hasUserOffered for the
// driver-side search endpoint (spec.md §4.7).
type Summary struct {
	RideRequest    `bson:",inline"`
	HasUserOffered bool     `json:"hasUserOffered"`
	DistanceM      *float64 `json:"distanceMeters,omitempty"`
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// Offer is spec.md §3's Offer entity, stored as its own document.
type Offer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID primitive.ObjectID `bson:"requestId" json:"requestId"`
	DriverID  primitive.ObjectID `bson:"driverId" json:"driverId"`
	RideID    primitive.ObjectID `bson:"rideId,omitempty" json:"rideId,omitempty"`

	PricePerSeat int64       `bson:"pricePerSeat" json:"pricePerSeat"`
	Message      string      `bson:"message,omitempty" json:"message,omitempty"`
	Status       OfferStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequestInput struct {
	AirportID          string    `json:"airportId" binding:"required"`
	Direction          Direction `json:"direction" binding:"required"`
	Location           Location  `json:"location" binding:"required"`
	PreferredAt        time.Time `json:"preferredAt" binding:"required"`
	FlexibilityMinutes int       `json:"flexibilityMinutes" binding:"min=0"`
	SeatsNeeded        int       `json:"seatsNeeded" binding:"required,min=1,max=8"`
	Luggage            int       `json:"luggage" binding:"min=0"`
	MaxPricePerSeat    *int64    `json:"maxPricePerSeat,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

type MakeOfferInput struct {
	PricePerSeat int64  `json:"pricePerSeat" binding:"required,min=0"`
	RideID       string `json:"rideId,omitempty"`
	Message      string `json:"message,omitempty"`
}

type AcceptOfferInput struct {
	OfferID       string `json:"offerId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=card wallet"`
}

// SearchFilter is spec.md §4.7's request-search input, mirroring
// ride.SearchFilter's shape for the driver-side browse endpoint.
type SearchFilter struct {
	AirportID    primitive.ObjectID
	Direction    Direction
	Date         *time.Time
	City         string
	PickupLon    *float64
	PickupLat    *float64
	RadiusMeters float64
}
