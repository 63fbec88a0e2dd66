package airport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestFindByID_Found(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "airpool.airports", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "iataCode", Value: "CDG"}}))

		repo := &repository{airports: mt.Coll}
		a, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "CDG", a.IATACode)
	})
}

func TestFindByID_NotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "airpool.airports", mtest.FirstBatch))

		repo := &repository{airports: mt.Coll}
		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		assert.Equal(t, ErrNotFound, err)
	})
}
