package wallet

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/logger"
	"airpool/internal/metrics"
)

// Service is the wallet-facing surface used by handler.go and by the
// booking/payout engines that need to move money without reaching
// into Repository directly.
type Service interface {
	GetWallet(ctx context.Context, userID primitive.ObjectID) (*Wallet, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter, page, limit int) ([]Transaction, int64, error)

	// Credit/Debit post an already-completed ledger entry — the
	// payment has already cleared at the PSP (or this is an internal
	// transfer like a ride earning), so there is nothing left pending.
	Credit(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error)
	Debit(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error)

	// ReserveWithdrawal opens a pending withdrawal transaction,
	// reserving funds out of available balance without touching the
	// settled balance yet.
	ReserveWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64, description string) (*Transaction, error)
	SettleWithdrawal(ctx context.Context, txID primitive.ObjectID, pspPayoutID string) (*Transaction, error)
	FailWithdrawal(ctx context.Context, txID primitive.ObjectID) (*Transaction, error)

	FeePolicy() int

	// HasSettledIntent reports whether a completed ledger entry already
	// exists for a given PSP payment intent, the idempotency check the
	// webhook reconciler uses before crediting a driver's earnings twice.
	HasSettledIntent(ctx context.Context, pspIntentID string) (bool, error)

	// CreditForIntent is Credit plus a pspIntentId tag, so a later
	// redelivered webhook can find this entry via HasSettledIntent
	// instead of crediting the driver twice.
	CreditForIntent(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*Transaction, error)

	// CreditEarning posts a driver's net ride earning with the full
	// gross/fee/pct/net breakdown recorded on the transaction, then
	// appends a platformFee ledger row for the retained fee so the fee
	// leaves an audit trail rather than just vanishing from the split.
	CreditEarning(ctx context.Context, driverID primitive.ObjectID, fee FeeBreakdown, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error)

	// CreditEarningForIntent is CreditEarning plus a pspIntentId tag on
	// the earning row, for the webhook reconciliation path.
	CreditEarningForIntent(ctx context.Context, driverID primitive.ObjectID, fee FeeBreakdown, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*Transaction, error)
}

// PlatformUserID is the sentinel wallet owner that platformFee
// transactions are posted against — the platform's own take of the
// fee split, not any driver or passenger's money. It has no
// registered user, only a wallet document GetOrCreateWallet will
// lazily create the first time a fee is recorded.
var PlatformUserID = primitive.NilObjectID

type service struct {
	repo           Repository
	platformFeePct int
}

func NewService(repo Repository, platformFeePercent int) Service {
	return &service{repo: repo, platformFeePct: platformFeePercent}
}

func (s *service) FeePolicy() int { return s.platformFeePct }

func (s *service) HasSettledIntent(ctx context.Context, pspIntentID string) (bool, error) {
	_, err := s.repo.FindTransactionByIntentID(ctx, pspIntentID)
	if err == nil {
		return true, nil
	}
	if err == ErrTransactionNotFound {
		return false, nil
	}
	return false, apperr.Transient("failed to check settled intent", err)
}

func (s *service) GetWallet(ctx context.Context, userID primitive.ObjectID) (*Wallet, error) {
	w, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("failed to load wallet", err)
	}
	metrics.WalletBalance.WithLabelValues(userID.Hex()).Set(float64(w.Balance))
	return w, nil
}

func (s *service) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter, page, limit int) ([]Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, userID, filter, page, limit)
}

func (s *service) Credit(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, apperr.Validation("credit amount must be positive")
	}
	return s.post(ctx, userID, kind, amount, ref, refID, "", description, nil)
}

func (s *service) CreditForIntent(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, apperr.Validation("credit amount must be positive")
	}
	return s.post(ctx, userID, kind, amount, ref, refID, pspIntentID, description, nil)
}

func (s *service) Debit(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, amount int64, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, apperr.Validation("debit amount must be positive")
	}
	return s.post(ctx, userID, kind, -amount, ref, refID, "", description, nil)
}

func (s *service) CreditEarning(ctx context.Context, driverID primitive.ObjectID, fee FeeBreakdown, ref ReferenceKind, refID primitive.ObjectID, description string) (*Transaction, error) {
	return s.creditEarning(ctx, driverID, fee, ref, refID, "", description)
}

func (s *service) CreditEarningForIntent(ctx context.Context, driverID primitive.ObjectID, fee FeeBreakdown, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*Transaction, error) {
	return s.creditEarning(ctx, driverID, fee, ref, refID, pspIntentID, description)
}

func (s *service) creditEarning(ctx context.Context, driverID primitive.ObjectID, fee FeeBreakdown, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*Transaction, error) {
	if fee.Net <= 0 {
		return nil, apperr.Validation("credit amount must be positive")
	}
	earning, err := s.post(ctx, driverID, KindRideEarning, fee.Net, ref, refID, pspIntentID, description, &fee)
	if err != nil {
		return nil, err
	}
	if fee.Fee > 0 {
		if _, feeErr := s.post(ctx, PlatformUserID, KindPlatformFee, fee.Fee, ref, refID, "", "platform fee: "+description, &fee); feeErr != nil {
			logger.Error("ride earning posted but platform fee ledger row failed", "driverId", driverID, "err", feeErr)
		}
	}
	return earning, nil
}

func (s *service) post(ctx context.Context, userID primitive.ObjectID, kind TransactionKind, signedAmount int64, ref ReferenceKind, refID primitive.ObjectID, pspIntentID, description string, fee *FeeBreakdown) (*Transaction, error) {
	w, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("failed to load wallet", err)
	}

	tx := &Transaction{
		WalletID:      w.ID,
		UserID:        userID,
		Kind:          kind,
		Amount:        signedAmount,
		Currency:      w.Currency,
		Status:        StatusCompleted,
		ReferenceKind: ref,
		PSPIntentID:   pspIntentID,
		Description:   description,
	}
	if fee != nil {
		tx.GrossAmount = fee.Gross
		tx.FeeAmount = fee.Fee
		tx.FeePercentage = float64(fee.Pct)
		tx.NetAmount = fee.Net
	}
	if !refID.IsZero() {
		tx.ReferenceID = &refID
	}

	result, err := s.repo.Append(ctx, tx)
	if err != nil {
		if err == ErrInsufficientBalance {
			return nil, apperr.Capacity("insufficient wallet balance")
		}
		return nil, apperr.Transient("failed to append ledger transaction", err)
	}
	return result, nil
}

func (s *service) ReserveWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, apperr.Validation("withdrawal amount must be positive")
	}
	w, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("failed to load wallet", err)
	}

	tx := &Transaction{
		WalletID:    w.ID,
		UserID:      userID,
		Kind:        KindWithdrawal,
		Amount:      -amount,
		Currency:    w.Currency,
		Status:      StatusPending,
		Description: description,
	}
	result, err := s.repo.Append(ctx, tx)
	if err != nil {
		if err == ErrInsufficientBalance {
			return nil, apperr.Capacity("insufficient available balance")
		}
		return nil, apperr.Transient("failed to reserve withdrawal", err)
	}
	return result, nil
}

func (s *service) SettleWithdrawal(ctx context.Context, txID primitive.ObjectID, pspPayoutID string) (*Transaction, error) {
	tx, err := s.repo.MarkCompleted(ctx, txID)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, apperr.Transient("failed to settle withdrawal", err)
	}
	return tx, nil
}

func (s *service) FailWithdrawal(ctx context.Context, txID primitive.ObjectID) (*Transaction, error) {
	tx, err := s.repo.MarkFailed(ctx, txID)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, apperr.Transient("failed to fail withdrawal", err)
	}
	return tx, nil
}
