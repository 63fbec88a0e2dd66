// Package payment implements spec.md §4.3's PaymentGateway: the
// narrow seam between the rest of the module and Stripe, so nothing
// else ever imports stripe-go directly.
package payment

// Intent mirrors the subset of a Stripe PaymentIntent the rest of the
// module needs to drive a card-funded booking to completion.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	CustomerID   string
	// DestinationAccountID is set when the intent was created as a
	// split payment (spec.md §4.5): non-empty means a cancellation's
	// refund must reverse the transfer leg too.
	DestinationAccountID string
	ApplicationFeeAmount int64
	Metadata             map[string]string
}

// CreateIntentParams is spec.md §4.3's CreateIntent argument set,
// including the optional split-payment destination and application
// fee used when the driver has a connected payout account.
type CreateIntentParams struct {
	Amount               int64
	Currency             string
	CustomerID           string
	Metadata             map[string]string
	DestinationAccountID string
	ApplicationFeeAmount int64
}

// RefundParams is spec.md §4.5's Refund argument set: a card refund on
// a split payment must optionally reverse the connected-account
// transfer and claw back the platform's application fee in the same
// call.
type RefundParams struct {
	IntentID             string
	Amount               int64
	ReverseTransfer      bool
	RefundApplicationFee bool
}

// Refund mirrors a Stripe Refund issued against a captured PaymentIntent.
type Refund struct {
	ID              string
	PaymentIntentID string
	Amount          int64
	Status          string
}

// ConnectedAccount mirrors a Stripe Express account created for a
// driver so their earnings can be transferred out of the platform's
// balance and eventually paid out to their bank.
type ConnectedAccount struct {
	ID             string
	Email          string
	PayoutsEnabled bool
	OnboardingURL  string
}

// Transfer moves funds from the platform's Stripe balance into a
// driver's connected account balance — the first leg of a payout.
type Transfer struct {
	ID                   string
	Amount               int64
	Currency             string
	DestinationAccountID string
	Status               string
}

// Payout moves funds from a connected account's Stripe balance to the
// driver's external bank account — the second leg of a payout.
type Payout struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// Event is a verified, decoded webhook event handed to
// internal/webhook for reconciliation. Type follows Stripe's own
// dotted event-type naming (e.g. "payment_intent.succeeded").
type Event struct {
	ID      string
	Type    string
	Payload []byte
}
