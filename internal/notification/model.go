// Package notification implements spec.md §4.8's NotificationBus:
// persist a Notification row, then invalidate the per-user cache key
// so the next list read observes it.
package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind is the closed enum of notification kinds spec.md §4.8 names.
// Design note: "dynamic payloads... become tagged variants with a
// closed enum of kinds plus typed per-kind payload structures" — Kind
// is the tag, Payload carries the per-kind fields as a bson.M built by
// one of the typed constructors below rather than an ad-hoc map at
// each call site.
type Kind string

const (
	KindBookingRequest   Kind = "booking_request"
	KindBookingAccepted  Kind = "booking_accepted"
	KindBookingRejected  Kind = "booking_rejected"
	KindBookingCancelled Kind = "booking_cancelled"
	KindRideCancelled    Kind = "ride_cancelled"
	KindChatMessage      Kind = "chat_message"
	KindRateDriver       Kind = "rate_driver"
	KindRatePassenger    Kind = "rate_passenger"
	KindOfferReceived    Kind = "offer_received"
	KindOfferRejected    Kind = "offer_rejected"
	KindRequestBooked    Kind = "request_booked"
	KindRatingReceived   Kind = "rating_received"
)

// dedupedKinds enforces spec.md §4.8's "at-most-one per
// (userId, bookingId)" rule.
var dedupedKinds = map[Kind]bool{
	KindRateDriver:    true,
	KindRatePassenger: true,
}

// Notification is spec.md §3's Notification entity.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Kind      Kind               `bson:"kind" json:"kind"`
	Payload   bson.M             `bson:"payload" json:"payload"`
	IsRead    bool               `bson:"isRead" json:"isRead"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func BookingRequestPayload(rideID, bookingID primitive.ObjectID, seats int) bson.M {
	return bson.M{"rideId": rideID, "bookingId": bookingID, "seats": seats}
}

func BookingStatusPayload(rideID, bookingID primitive.ObjectID, status string) bson.M {
	return bson.M{"rideId": rideID, "bookingId": bookingID, "status": status}
}

func RideCancelledPayload(rideID primitive.ObjectID) bson.M {
	return bson.M{"rideId": rideID}
}

func OfferPayload(requestID, offerID primitive.ObjectID, pricePerSeat int64) bson.M {
	return bson.M{"requestId": requestID, "offerId": offerID, "pricePerSeat": pricePerSeat}
}

func RequestBookedPayload(requestID, rideID, driverID primitive.ObjectID) bson.M {
	return bson.M{"requestId": requestID, "rideId": rideID, "driverId": driverID}
}

func RatePromptPayload(bookingID, rideID primitive.ObjectID) bson.M {
	return bson.M{"bookingId": bookingID, "rideId": rideID}
}

func RatingReceivedPayload(ratingID primitive.ObjectID, stars int) bson.M {
	return bson.M{"ratingId": ratingID, "stars": stars}
}
