// Package webhook implements spec.md §4.4's WebhookReconciler: the
// idempotent bridge between Stripe's async event stream and the
// booking/wallet/payout aggregates that only find out about a
// payment's true outcome after the fact.
package webhook

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event records that a PSP event id has already been processed, so a
// redelivered webhook is a no-op rather than a double-credit.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PSPEventID  string             `bson:"eventId" json:"eventId"`
	Type        string             `bson:"type" json:"type"`
	ReceivedAt  time.Time          `bson:"receivedAt" json:"receivedAt"`
	ProcessedAt *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
}
