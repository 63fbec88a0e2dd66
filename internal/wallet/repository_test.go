package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"airpool/internal/clock"
)

func TestGetOrCreateWallet_ReturnsExisting(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("existing wallet", func(mt *mtest.T) {
		userID := primitive.NewObjectID()
		walletID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "airpool.wallets", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: walletID},
			{Key: "userId", Value: userID},
			{Key: "balance", Value: int64(2500)},
			{Key: "currency", Value: "usd"},
		}))

		repo := &repository{wallets: mt.Coll, clock: clock.Real(), locks: newWalletLocks()}
		w, err := repo.GetOrCreateWallet(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, walletID, w.ID)
		assert.Equal(t, int64(2500), w.Balance)
	})
}

func TestGetOrCreateWallet_CreatesWhenMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates wallet", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "airpool.wallets", mtest.FirstBatch))
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}})

		repo := &repository{wallets: mt.Coll, clock: clock.Real(), locks: newWalletLocks()}
		userID := primitive.NewObjectID()
		w, err := repo.GetOrCreateWallet(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, w.UserID)
		assert.Equal(t, "usd", w.Currency)
		assert.True(t, w.IsActive)
	})
}

func TestRecomputeBalance_SumsCompletedTransactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("recompute", func(mt *mtest.T) {
		walletID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "airpool.transactions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: nil},
			{Key: "sum", Value: int64(7400)},
		}))
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		repo := &repository{
			wallets: mt.Client.Database("airpool").Collection("wallets"),
			txs:     mt.Coll,
			clock:   clock.Real(),
			locks:   newWalletLocks(),
		}
		sum, err := repo.RecomputeBalance(context.Background(), walletID)
		require.NoError(t, err)
		assert.Equal(t, int64(7400), sum)
	})
}

func TestApplyFee_ExactDivision(t *testing.T) {
	fb := ApplyFee(2000, 10)
	assert.Equal(t, int64(200), fb.Fee)
	assert.Equal(t, int64(1800), fb.Net)
}
