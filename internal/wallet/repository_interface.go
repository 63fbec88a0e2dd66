package wallet

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is spec.md §4.2's LedgerStore surface: the only code
// path allowed to move money between a Wallet's balance fields.
type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID primitive.ObjectID) (*Wallet, error)
	GetWalletByID(ctx context.Context, walletID primitive.ObjectID) (*Wallet, error)

	// Append inserts tx and, atomically, folds its effect into the
	// owning wallet's balance/pendingBalance/totals. Returns
	// ErrInsufficientBalance if tx would drive available balance
	// negative.
	Append(ctx context.Context, tx *Transaction) (*Transaction, error)

	// MarkCompleted transitions a pending withdrawal to completed,
	// settling its reservation into a permanent balance decrease.
	MarkCompleted(ctx context.Context, txID primitive.ObjectID) (*Transaction, error)

	// MarkFailed transitions a pending withdrawal to failed, releasing
	// its reservation back to available balance.
	MarkFailed(ctx context.Context, txID primitive.ObjectID) (*Transaction, error)

	FindTransactionByID(ctx context.Context, txID primitive.ObjectID) (*Transaction, error)
	FindTransactionByPayoutID(ctx context.Context, pspPayoutID string) (*Transaction, error)
	FindTransactionByIntentID(ctx context.Context, pspIntentID string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter, page, limit int) ([]Transaction, int64, error)

	// RecomputeBalance recomputes balance from the completed-transaction
	// sum and overwrites the cached wallet field, healing drift. No
	// code path in this module calls it; no reconciliation sweep runs.
	RecomputeBalance(ctx context.Context, walletID primitive.ObjectID) (int64, error)
}
