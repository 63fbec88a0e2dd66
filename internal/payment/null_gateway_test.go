package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNull_EveryOperationFailsClosed(t *testing.T) {
	n := Null{}
	ctx := context.Background()

	_, err := n.CreateIntent(ctx, CreateIntentParams{Amount: 1000, Currency: "usd"})
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.RetrieveIntent(ctx, "pi_1")
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.RefundIntent(ctx, RefundParams{IntentID: "pi_1", Amount: 500})
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.CreateConnectedAccount(ctx, "driver@example.com")
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.CreateTransfer(ctx, 1000, "usd", "acct_1", "")
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.CreatePayout(ctx, 1000, "usd", "acct_1")
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)

	_, err = n.VerifyWebhook([]byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrGatewayUnconfigured)
}

func TestNull_SatisfiesGatewayInterface(t *testing.T) {
	var g Gateway = Null{}
	assert.NotNil(t, g)
}
