package payout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the Payout aggregate's persistence port. Lookups by
// PSP identifiers back the WebhookReconciler, which only ever learns
// a transferId/payoutId after the fact.
type Repository interface {
	Create(ctx context.Context, p *Payout) (*Payout, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Payout, error)
	FindByTransactionID(ctx context.Context, txID primitive.ObjectID) (*Payout, error)
	FindByPSPTransferID(ctx context.Context, transferID string) (*Payout, error)
	FindByPSPPayoutID(ctx context.Context, payoutID string) (*Payout, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Payout, int64, error)

	AttachTransfer(ctx context.Context, id primitive.ObjectID, transferID string) error
	MarkProcessing(ctx context.Context, id primitive.ObjectID, payoutID string) error
	MarkCompleted(ctx context.Context, id primitive.ObjectID) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
}
