package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrWebhookSecretUnset = errors.New("stripe webhook secret not configured")

// stripeGateway is the production Gateway, backed by a
// per-instance *client.API rather than the package-global
// stripe.Key — so constructing two gateways with different keys
// (e.g. in tests) never races.
type stripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) Gateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &stripeGateway{sc: sc, webhookSecret: webhookSecret}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.DestinationAccountID != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(p.DestinationAccountID),
		}
		if p.ApplicationFeeAmount > 0 {
			params.ApplicationFeeAmount = stripe.Int64(p.ApplicationFeeAmount)
		}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	in := toIntent(pi)
	in.DestinationAccountID = p.DestinationAccountID
	in.ApplicationFeeAmount = p.ApplicationFeeAmount
	return in, nil
}

func (g *stripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func (g *stripeGateway) RefundIntent(ctx context.Context, p RefundParams) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.IntentID),
	}
	if p.Amount > 0 {
		params.Amount = stripe.Int64(p.Amount)
	}
	if p.ReverseTransfer {
		params.ReverseTransfer = stripe.Bool(true)
	}
	if p.RefundApplicationFee {
		params.RefundApplicationFee = stripe.Bool(true)
	}
	params.Context = ctx

	rf, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, err
	}
	return &Refund{
		ID:              rf.ID,
		PaymentIntentID: p.IntentID,
		Amount:          rf.Amount,
		Status:          string(rf.Status),
	}, nil
}

func (g *stripeGateway) CreateConnectedAccount(ctx context.Context, email string) (*ConnectedAccount, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx

	acct, err := g.sc.Accounts.New(params)
	if err != nil {
		return nil, err
	}
	return toConnectedAccount(acct), nil
}

func (g *stripeGateway) RetrieveConnectedAccount(ctx context.Context, accountID string) (*ConnectedAccount, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := g.sc.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, err
	}
	return toConnectedAccount(acct), nil
}

func (g *stripeGateway) CreateTransfer(ctx context.Context, amount int64, currency, destinationAccountID, description string) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destinationAccountID),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	params.Context = ctx

	tr, err := g.sc.Transfers.New(params)
	if err != nil {
		return nil, err
	}
	return &Transfer{
		ID:                   tr.ID,
		Amount:               tr.Amount,
		Currency:             string(tr.Currency),
		DestinationAccountID: destinationAccountID,
		Status:               "paid",
	}, nil
}

func (g *stripeGateway) CreatePayout(ctx context.Context, amount int64, currency, accountID string) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.SetStripeAccount(accountID)
	params.Context = ctx

	po, err := g.sc.Payouts.New(params)
	if err != nil {
		return nil, err
	}
	return &Payout{
		ID:       po.ID,
		Amount:   po.Amount,
		Currency: string(po.Currency),
		Status:   string(po.Status),
	}, nil
}

func (g *stripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, ErrWebhookSecretUnset
	}
	ev, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, err
	}
	return &Event{ID: ev.ID, Type: string(ev.Type), Payload: ev.Data.Raw}, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
	if pi.Customer != nil {
		in.CustomerID = pi.Customer.ID
	}
	if len(pi.Metadata) > 0 {
		in.Metadata = pi.Metadata
	}
	return in
}

func toConnectedAccount(acct *stripe.Account) *ConnectedAccount {
	return &ConnectedAccount{
		ID:             acct.ID,
		Email:          acct.Email,
		PayoutsEnabled: acct.PayoutsEnabled,
	}
}
