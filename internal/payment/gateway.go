package payment

import "context"

// Gateway is spec.md §4.3's PaymentGateway abstraction. Booking pays
// in through CreateIntent/RefundIntent; Payout pays out through
// CreateConnectedAccount/Transfer/CreatePayout; Webhook verifies
// inbound Stripe events through VerifyWebhook.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	RefundIntent(ctx context.Context, params RefundParams) (*Refund, error)

	CreateConnectedAccount(ctx context.Context, email string) (*ConnectedAccount, error)
	RetrieveConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error)
	CreateTransfer(ctx context.Context, amount int64, currency, destinationAccountID, description string) (*Transfer, error)
	CreatePayout(ctx context.Context, amount int64, currency, accountID string) (*Payout, error)

	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
