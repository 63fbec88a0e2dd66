// Package payout implements spec.md §3's Payout entity: the second
// leg of a driver withdrawal, driven from pending through to a
// terminal state by the WebhookReconciler's transfer/payout events.
package payout

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

type Method string

const (
	MethodStandard Method = "standard"
	MethodInstant  Method = "instant"
)

// Payout is spec.md §3's Payout entity.
type Payout struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	WalletID         primitive.ObjectID `bson:"walletId" json:"walletId"`
	Amount           int64              `bson:"amount" json:"amount"`
	Status           Status             `bson:"status" json:"status"`
	PSPPayoutID      string             `bson:"pspPayoutId,omitempty" json:"pspPayoutId,omitempty"`
	PSPTransferID    string             `bson:"pspTransferId,omitempty" json:"pspTransferId,omitempty"`
	Method           Method             `bson:"method" json:"method"`
	FailureReason    string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	EstimatedArrival *time.Time         `bson:"estimatedArrival,omitempty" json:"estimatedArrival,omitempty"`
	TransactionID    primitive.ObjectID `bson:"transactionId" json:"transactionId"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type WithdrawRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}

type ConnectBankResponse struct {
	AccountID     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
}

type BankStatusResponse struct {
	Connected      bool `json:"connected"`
	PayoutsEnabled bool `json:"payoutsEnabled"`
}
