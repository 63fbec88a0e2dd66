package wallet

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"airpool/internal/clock"
	"airpool/internal/metrics"
	"airpool/internal/mongoutil"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// walletLocks serializes balance-mutating operations per walletId, on
// top of Mongo's document-level atomicity, so a read-modify-write that
// spans two documents (wallet + transaction) never races with another
// append for the same wallet within this process. spec.md §5: "Wallet
// rows are the hot path. All balance-mutating code paths must
// serialize per walletId."
type walletLocks struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[primitive.ObjectID]*sync.Mutex)}
}

func (w *walletLocks) lock(id primitive.ObjectID) func() {
	w.mu.Lock()
	l, ok := w.locks[id]
	if !ok {
		l = &sync.Mutex{}
		w.locks[id] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}

type repository struct {
	client  *mongo.Client
	wallets *mongo.Collection
	txs     *mongo.Collection
	clock   clock.Clock
	locks   *walletLocks
}

func NewRepository(client *mongo.Client, db *mongo.Database, c clock.Clock) Repository {
	return &repository{
		client:  client,
		wallets: db.Collection("wallets"),
		txs:     db.Collection("transactions"),
		clock:   c,
		locks:   newWalletLocks(),
	}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID primitive.ObjectID) (*Wallet, error) {
	var w Wallet
	err := r.wallets.FindOne(ctx, bson.M{"userId": userID}).Decode(&w)
	if err == nil {
		return &w, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := r.clock.Now()
	w = Wallet{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Currency:  "usd",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.wallets.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if err := r.wallets.FindOne(ctx, bson.M{"userId": userID}).Decode(&w); err != nil {
				return nil, err
			}
			return &w, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *repository) GetWalletByID(ctx context.Context, walletID primitive.ObjectID) (*Wallet, error) {
	var w Wallet
	err := r.wallets.FindOne(ctx, bson.M{"_id": walletID}).Decode(&w)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Append inserts tx and folds its effect into the wallet document
// inside a single multi-document Mongo transaction, guarded
// additionally by a per-wallet in-process mutex so two Append calls
// for the same wallet on this instance never interleave their balance
// read and write.
func (r *repository) Append(ctx context.Context, tx *Transaction) (*Transaction, error) {
	unlock := r.locks.lock(tx.WalletID)
	defer unlock()

	now := r.clock.Now()
	tx.ID = primitive.NewObjectID()
	tx.CreatedAt = now
	if tx.Status == "" {
		tx.Status = StatusCompleted
	}

	result, err := mongoutil.WithTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var w Wallet
		if err := r.wallets.FindOne(sessCtx, bson.M{"_id": tx.WalletID}).Decode(&w); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrWalletNotFound
			}
			return nil, err
		}

		inc := bson.M{}
		switch {
		case tx.Status == StatusCompleted:
			if tx.Amount < 0 && w.Balance+tx.Amount < w.PendingBalance {
				return nil, ErrInsufficientBalance
			}
			inc["balance"] = tx.Amount
			if tx.Amount > 0 {
				inc["totalEarned"] = tx.Amount
			} else if tx.Kind == KindWithdrawal {
				inc["totalWithdrawn"] = -tx.Amount
			}
		case tx.Status == StatusPending && reservesBalance(tx.Kind):
			reserve := tx.Amount
			if reserve < 0 {
				reserve = -reserve
			}
			if w.AvailableBalance() < reserve {
				return nil, ErrInsufficientBalance
			}
			inc["pendingBalance"] = reserve
		}

		if len(inc) > 0 {
			if _, err := r.wallets.UpdateOne(sessCtx, bson.M{"_id": tx.WalletID}, bson.M{
				"$inc": inc,
				"$set": bson.M{"updatedAt": now},
			}); err != nil {
				return nil, err
			}
		}

		if _, err := r.txs.InsertOne(sessCtx, tx); err != nil {
			return nil, err
		}
		return tx, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWalletTransaction(string(tx.Kind), string(tx.Status))
	return result.(*Transaction), nil
}

func (r *repository) MarkCompleted(ctx context.Context, txID primitive.ObjectID) (*Transaction, error) {
	return r.settlePending(ctx, txID, StatusCompleted)
}

func (r *repository) MarkFailed(ctx context.Context, txID primitive.ObjectID) (*Transaction, error) {
	return r.settlePending(ctx, txID, StatusFailed)
}

// settlePending resolves a pending reservation (today, only
// withdrawals): completing it converts the reservation into a
// permanent balance decrease, failing it releases the reservation
// back to available balance untouched.
func (r *repository) settlePending(ctx context.Context, txID primitive.ObjectID, to TransactionStatus) (*Transaction, error) {
	var tx Transaction
	if err := r.txs.FindOne(ctx, bson.M{"_id": txID}).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.Status != StatusPending {
		return &tx, nil
	}

	unlock := r.locks.lock(tx.WalletID)
	defer unlock()

	now := r.clock.Now()
	reserve := tx.Amount
	if reserve < 0 {
		reserve = -reserve
	}

	result, err := mongoutil.WithTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) (interface{}, error) {
		inc := bson.M{"pendingBalance": -reserve}
		if to == StatusCompleted {
			inc["balance"] = tx.Amount
			if tx.Kind == KindWithdrawal {
				inc["totalWithdrawn"] = reserve
			}
		}
		if _, err := r.wallets.UpdateOne(sessCtx, bson.M{"_id": tx.WalletID}, bson.M{
			"$inc": inc,
			"$set": bson.M{"updatedAt": now},
		}); err != nil {
			return nil, err
		}

		update := bson.M{"$set": bson.M{"status": to, "processedAt": now}}
		if err := r.txs.FindOneAndUpdate(sessCtx, bson.M{"_id": txID}, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&tx); err != nil {
			return nil, err
		}
		return &tx, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordWalletTransaction(string(tx.Kind), string(to))
	return result.(*Transaction), nil
}

func (r *repository) FindTransactionByID(ctx context.Context, txID primitive.ObjectID) (*Transaction, error) {
	var tx Transaction
	if err := r.txs.FindOne(ctx, bson.M{"_id": txID}).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) FindTransactionByPayoutID(ctx context.Context, pspPayoutID string) (*Transaction, error) {
	var tx Transaction
	if err := r.txs.FindOne(ctx, bson.M{"pspPayoutId": pspPayoutID}).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) FindTransactionByIntentID(ctx context.Context, pspIntentID string) (*Transaction, error) {
	var tx Transaction
	if err := r.txs.FindOne(ctx, bson.M{"pspIntentId": pspIntentID}).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter TransactionFilter, page, limit int) ([]Transaction, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	f := bson.M{"userId": userID}
	if filter.Kind != "" {
		f["kind"] = filter.Kind
	}
	if filter.Status != "" {
		f["status"] = filter.Status
	}
	if filter.ReferenceKind != "" {
		f["referenceKind"] = filter.ReferenceKind
	}

	total, err := r.txs.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.txs.Find(ctx, f,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var txs []Transaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *repository) RecomputeBalance(ctx context.Context, walletID primitive.ObjectID) (int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "walletId", Value: walletID},
			{Key: "status", Value: StatusCompleted},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "sum", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
	cur, err := r.txs.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		Sum int64 `bson:"sum"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, err
	}
	var sum int64
	if len(docs) > 0 {
		sum = docs[0].Sum
	}

	unlock := r.locks.lock(walletID)
	defer unlock()

	if _, err := r.wallets.UpdateOne(ctx, bson.M{"_id": walletID}, bson.M{
		"$set": bson.M{"balance": sum, "updatedAt": r.clock.Now()},
	}); err != nil {
		return 0, err
	}
	return sum, nil
}
