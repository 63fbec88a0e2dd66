package payment

import (
	"context"
	"errors"
)

// ErrGatewayUnconfigured is returned by Null for every real payment
// operation, so misconfigured deployments (no Stripe secret key) fail
// loudly at the call site instead of silently pretending to charge a
// card. Mirrors cache.Null's "don't silently no-op the thing the
// caller actually depends on" stance, but inverted: cache misses are
// safe to swallow, unconfirmed payments are not.
var ErrGatewayUnconfigured = errors.New("payment gateway not configured")

// Null is a Gateway that satisfies the interface without a Stripe key
// configured, for local development boot. It lets the server start
// and the booking/payout endpoints return a clean error instead of a
// nil-pointer panic.
type Null struct{}

func (Null) CreateIntent(context.Context, CreateIntentParams) (*Intent, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) RetrieveIntent(context.Context, string) (*Intent, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) RefundIntent(context.Context, RefundParams) (*Refund, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) CreateConnectedAccount(context.Context, string) (*ConnectedAccount, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) RetrieveConnectedAccount(context.Context, string) (*ConnectedAccount, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) CreateTransfer(context.Context, int64, string, string, string) (*Transfer, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) CreatePayout(context.Context, int64, string, string) (*Payout, error) {
	return nil, ErrGatewayUnconfigured
}

func (Null) VerifyWebhook([]byte, string) (*Event, error) {
	return nil, ErrGatewayUnconfigured
}
