package webhook

import (
	"context"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/booking"
	"airpool/internal/logger"
	"airpool/internal/metrics"
	"airpool/internal/payment"
	"airpool/internal/payout"
	"airpool/internal/ride"
	"airpool/internal/user"
	"airpool/internal/wallet"
)

// Service is spec.md §4.4's WebhookReconciler: verify, deduplicate by
// event id, and apply exactly the state transition its table lists
// for each Stripe event type.
type Service interface {
	HandleRawEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

type service struct {
	repo     Repository
	gateway  payment.Gateway
	bookings booking.Repository
	rides    ride.Repository
	users    user.Repository
	wallets  wallet.Service
	payouts  payout.Repository
}

func NewService(repo Repository, gateway payment.Gateway, bookings booking.Repository, rides ride.Repository, users user.Repository, wallets wallet.Service, payouts payout.Repository) Service {
	return &service{repo: repo, gateway: gateway, bookings: bookings, rides: rides, users: users, wallets: wallets, payouts: payouts}
}

// stripeObject is the narrow slice of a Stripe event's data.object
// this reconciler actually reads. Real Stripe payloads carry far more,
// but nothing else here is acted on.
type stripeObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	PaymentIntent  string            `json:"payment_intent"`
	Destination    string            `json:"destination"`
	Metadata       map[string]string `json:"metadata"`
	PayoutsEnabled bool              `json:"payouts_enabled"`
	FailureMessage string            `json:"failure_message"`
}

func (s *service) HandleRawEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	ev, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return apperr.Validation("invalid webhook signature")
	}

	recorded, err := s.repo.Record(ctx, ev.ID, ev.Type)
	if err != nil {
		return apperr.Transient("failed to record webhook event", err)
	}
	if !recorded {
		metrics.RecordWebhookEvent(ev.Type, "duplicate")
		logger.Info("webhook: duplicate event ignored", "eventId", ev.ID, "type", ev.Type)
		return nil
	}

	var obj stripeObject
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &obj); err != nil {
			_ = s.repo.MarkFailed(ctx, ev.ID, "malformed payload")
			return apperr.Validation("malformed webhook payload")
		}
	}

	if err := s.dispatch(ctx, ev.Type, obj); err != nil {
		_ = s.repo.MarkFailed(ctx, ev.ID, err.Error())
		metrics.RecordWebhookEvent(ev.Type, "failed")
		return err
	}
	metrics.RecordWebhookEvent(ev.Type, "processed")
	return s.repo.MarkProcessed(ctx, ev.ID)
}

func (s *service) dispatch(ctx context.Context, eventType string, obj stripeObject) error {
	switch eventType {
	case "payment_intent.succeeded":
		return s.handlePaymentIntentSucceeded(ctx, obj)
	case "payment_intent.payment_failed":
		return s.handlePaymentIntentFailed(ctx, obj)
	case "transfer.created":
		return s.handleTransferCreated(ctx, obj)
	case "payout.paid":
		return s.handlePayoutPaid(ctx, obj)
	case "payout.failed":
		return s.handlePayoutFailed(ctx, obj)
	case "account.updated":
		return s.handleAccountUpdated(ctx, obj)
	case "charge.refunded":
		return s.handleChargeRefunded(ctx, obj)
	default:
		logger.Info("webhook: unhandled event type", "type", eventType)
		return nil
	}
}

// handlePaymentIntentSucceeded credits the driver's wallet with net
// earnings unless the charge was already split at the PSP via a
// connected-account destination, in which case the funds never
// touched the platform's balance in the first place.
func (s *service) handlePaymentIntentSucceeded(ctx context.Context, obj stripeObject) error {
	b, err := s.bookings.FindByPSPIntentID(ctx, obj.ID)
	if err != nil {
		logger.Info("webhook: payment_intent.succeeded for unknown booking, skipping", "intentId", obj.ID)
		return nil
	}
	if obj.Destination != "" {
		return nil
	}
	settled, err := s.wallets.HasSettledIntent(ctx, obj.ID)
	if err != nil {
		return err
	}
	if settled {
		return nil
	}

	r, err := s.rides.FindByID(ctx, b.RideID)
	if err != nil {
		return apperr.Transient("failed to load ride for payout reconciliation", err)
	}
	if driver, err := s.users.FindByID(ctx, r.DriverID); err == nil && driver.ConnectedPayoutAccountID != "" {
		return nil
	}

	fee := wallet.ApplyFee(b.AmountGross, s.wallets.FeePolicy())
	_, err = s.wallets.CreditEarningForIntent(ctx, r.DriverID, fee, wallet.ReferenceBooking, b.ID, obj.ID, "ride earning")
	return err
}

func (s *service) handlePaymentIntentFailed(ctx context.Context, obj stripeObject) error {
	b, err := s.bookings.FindByPSPIntentID(ctx, obj.ID)
	if err != nil {
		return nil
	}
	return s.bookings.SetPaymentFailed(ctx, b.ID)
}

// handleTransferCreated is mostly a confirmation: payout.Service.Withdraw
// already attaches the transfer id synchronously right after creating
// it. This only does something when that synchronous call was lost
// (the process died between CreateTransfer succeeding and the write
// landing) and the transactionId travelled in the transfer's metadata.
func (s *service) handleTransferCreated(ctx context.Context, obj stripeObject) error {
	if _, err := s.payouts.FindByPSPTransferID(ctx, obj.ID); err == nil {
		return nil
	}
	txID, err := primitive.ObjectIDFromHex(obj.Metadata["transactionId"])
	if err != nil {
		return nil
	}
	p, err := s.payouts.FindByTransactionID(ctx, txID)
	if err != nil {
		return nil
	}
	return s.payouts.AttachTransfer(ctx, p.ID, obj.ID)
}

func (s *service) handlePayoutPaid(ctx context.Context, obj stripeObject) error {
	p, err := s.payouts.FindByPSPPayoutID(ctx, obj.ID)
	if err != nil {
		return nil
	}
	if err := s.payouts.MarkCompleted(ctx, p.ID); err != nil {
		return apperr.Transient("failed to mark payout completed", err)
	}
	if _, err := s.wallets.SettleWithdrawal(ctx, p.TransactionID, obj.ID); err != nil {
		return err
	}
	return nil
}

// handlePayoutFailed refunds the reserved withdrawal back into
// available balance and marks both the Payout and its Transaction
// failed.
func (s *service) handlePayoutFailed(ctx context.Context, obj stripeObject) error {
	p, err := s.payouts.FindByPSPPayoutID(ctx, obj.ID)
	if err != nil {
		return nil
	}
	if err := s.payouts.MarkFailed(ctx, p.ID, obj.FailureMessage); err != nil {
		return apperr.Transient("failed to mark payout failed", err)
	}
	if _, err := s.wallets.FailWithdrawal(ctx, p.TransactionID); err != nil {
		return err
	}
	return nil
}

func (s *service) handleAccountUpdated(ctx context.Context, obj stripeObject) error {
	logger.Info("webhook: connected account updated", "accountId", obj.ID, "payoutsEnabled", obj.PayoutsEnabled)
	return nil
}

// handleChargeRefunded debits the driver's wallet by their share of a
// refund issued after the ride earning was already credited.
func (s *service) handleChargeRefunded(ctx context.Context, obj stripeObject) error {
	b, err := s.bookings.FindByPSPIntentID(ctx, obj.PaymentIntent)
	if err != nil {
		return nil
	}
	r, err := s.rides.FindByID(ctx, b.RideID)
	if err != nil {
		return apperr.Transient("failed to load ride for refund reconciliation", err)
	}
	if driver, err := s.users.FindByID(ctx, r.DriverID); err == nil && driver.ConnectedPayoutAccountID != "" {
		return nil
	}
	fee := wallet.ApplyFee(obj.AmountRefunded, s.wallets.FeePolicy())
	_, err = s.wallets.Debit(ctx, r.DriverID, wallet.KindRefund, fee.Net, wallet.ReferenceRefund, b.ID, "charge refunded")
	return err
}
