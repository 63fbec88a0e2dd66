// Package chat implements spec.md §6's messages surface: persisting
// and listing chat turns between a ride's driver and its passengers,
// or a ride request's passenger and an offering driver. There is no
// real-time transport here, only storage and access control.
package chat

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ThreadKind string

const (
	ThreadRide    ThreadKind = "ride"
	ThreadRequest ThreadKind = "request"
)

// Message is one chat turn. ThreadID is a ride's or a request's own
// id, disambiguated by Kind rather than a separate thread collection.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ThreadKind ThreadKind         `bson:"threadKind" json:"threadKind"`
	ThreadID   primitive.ObjectID `bson:"threadId" json:"threadId"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	Body       string             `bson:"body" json:"body"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}
