// Package wallet implements spec.md §4.2's LedgerStore: an append-only
// Transaction log that is the sole source of truth for wallet
// balances (invariant I3: balance = Σ completed transaction amounts).
package wallet

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wallet is spec.md §3's per-user balance sheet. Balance and
// PendingBalance are denormalized caches maintained exclusively by
// this package's Append/MarkCompleted/MarkFailed, plus
// RecomputeBalance, which overwrites Balance from the ledger sum —
// nothing else writes to a wallet document's money fields.
type Wallet struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Balance        int64              `bson:"balance" json:"balance"`
	PendingBalance int64              `bson:"pendingBalance" json:"pendingBalance"`
	TotalEarned    int64              `bson:"totalEarned" json:"totalEarned"`
	TotalWithdrawn int64              `bson:"totalWithdrawn" json:"totalWithdrawn"`
	Currency       string             `bson:"currency" json:"currency"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AvailableBalance is what a driver may withdraw right now: settled
// funds minus whatever is already reserved against an in-flight payout.
func (w *Wallet) AvailableBalance() int64 {
	return w.Balance - w.PendingBalance
}

type TransactionKind string

const (
	KindRideEarning      TransactionKind = "rideEarning"
	KindRidePayment      TransactionKind = "ridePayment"
	KindPlatformFee      TransactionKind = "platformFee"
	KindWithdrawal       TransactionKind = "withdrawal"
	KindWithdrawalFailed TransactionKind = "withdrawalFailed"
	KindRefund           TransactionKind = "refund"
	KindBonus            TransactionKind = "bonus"
	KindAdjustment       TransactionKind = "adjustment"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

type ReferenceKind string

const (
	ReferenceBooking ReferenceKind = "booking"
	ReferenceRide    ReferenceKind = "ride"
	ReferencePayout  ReferenceKind = "payout"
	ReferenceRefund  ReferenceKind = "refund"
	ReferenceManual  ReferenceKind = "manual"
)

// Transaction is spec.md §3's append-only ledger entry. A row with
// Status=="completed" is never mutated again; MarkCompleted and
// MarkFailed only apply to rows still "pending" — today that is only
// the withdrawal flow, where a payout takes time to settle at the PSP.
type Transaction struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WalletID      primitive.ObjectID  `bson:"walletId" json:"walletId"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`
	Kind          TransactionKind     `bson:"kind" json:"kind"`
	Amount        int64               `bson:"amount" json:"amount"` // signed, minor units
	GrossAmount   int64               `bson:"grossAmount,omitempty" json:"grossAmount,omitempty"`
	FeeAmount     int64               `bson:"feeAmount,omitempty" json:"feeAmount,omitempty"`
	FeePercentage float64             `bson:"feePercentage,omitempty" json:"feePercentage,omitempty"`
	NetAmount     int64               `bson:"netAmount,omitempty" json:"netAmount,omitempty"`
	Currency      string              `bson:"currency" json:"currency"`
	Status        TransactionStatus   `bson:"status" json:"status"`
	ReferenceKind ReferenceKind       `bson:"referenceKind,omitempty" json:"referenceKind,omitempty"`
	ReferenceID   *primitive.ObjectID `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	PSPIntentID   string              `bson:"pspIntentId,omitempty" json:"pspIntentId,omitempty"`
	PSPTransferID string              `bson:"pspTransferId,omitempty" json:"pspTransferId,omitempty"`
	PSPPayoutID   string              `bson:"pspPayoutId,omitempty" json:"pspPayoutId,omitempty"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	ProcessedAt   *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}

// TransactionFilter narrows ListTransactions per spec §6's
// GET /wallet/transactions.
type TransactionFilter struct {
	Kind          TransactionKind
	Status        TransactionStatus
	ReferenceKind ReferenceKind
}

// FeeBreakdown is the result of the platform fee policy from spec.md
// §4.2: integer math, round-half-up, so Fee+Net always reconstructs
// Gross exactly.
type FeeBreakdown struct {
	Gross int64
	Fee   int64
	Net   int64
	Pct   int
}

// ApplyFee computes gross*pct/100 rounded half-up.
func ApplyFee(gross int64, pct int) FeeBreakdown {
	fee := (gross*int64(pct) + 50) / 100
	return FeeBreakdown{Gross: gross, Fee: fee, Net: gross - fee, Pct: pct}
}

// reservesBalance reports whether creating a transaction of this kind
// in "pending" status should reserve funds out of the available
// balance (withdrawal requests reserve; everything else posts to the
// ledger already completed).
func reservesBalance(kind TransactionKind) bool {
	return kind == KindWithdrawal
}
