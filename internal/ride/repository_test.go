package ride

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"airpool/internal/clock"
)

func TestTryReserve_SucceedsWhenCapacityAvailable(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reserve ok", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		repo := &repository{col: mt.Coll, clock: clock.Real()}
		ok, err := repo.TryReserve(context.Background(), primitive.NewObjectID(), 1, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestTryReserve_FailsWhenNoMatch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reserve conflict", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		repo := &repository{col: mt.Coll, clock: clock.Real()}
		ok, err := repo.TryReserve(context.Background(), primitive.NewObjectID(), 1, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFreeze_SetsCancelledStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("freeze", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		repo := &repository{col: mt.Coll, clock: clock.Real()}
		err := repo.Freeze(context.Background(), primitive.NewObjectID())
		require.NoError(t, err)
	})
}

func TestSweepDepartedActive_DecodesIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("sweep", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		first := mtest.CreateCursorResponse(1, "rides.rides", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
		})
		killCursors := mtest.CreateCursorResponse(0, "rides.rides", mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		repo := &repository{col: mt.Coll, clock: clock.Real()}
		ids, err := repo.SweepDepartedActive(context.Background(), time.Now())
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, id, ids[0])
	})
}
