package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Create(ctx context.Context, n *Notification) (*Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Notification, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	var out []Notification
	if args.Get(0) != nil {
		out = args.Get(0).([]Notification)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRepository) ExistsForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind Kind) (bool, error) {
	args := m.Called(ctx, userID, bookingID, kind)
	return args.Bool(0), args.Error(1)
}

type fakeCache struct {
	deleted []string
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool)          { return "", false }
func (f *fakeCache) SetEX(ctx context.Context, key, value string, ttl time.Duration) {}
func (f *fakeCache) Del(ctx context.Context, keys ...string)                    { f.deleted = append(f.deleted, keys...) }
func (f *fakeCache) KeysGlob(ctx context.Context, pattern string) []string      { return nil }

type fakeDispatcher struct{ enqueued []*Notification }

func (f *fakeDispatcher) Enqueue(ctx context.Context, n *Notification) { f.enqueued = append(f.enqueued, n) }

func TestEmit_PersistsInvalidatesCacheAndDispatches(t *testing.T) {
	repo := new(MockRepository)
	c := &fakeCache{}
	d := &fakeDispatcher{}
	b := NewBus(repo, c, d)

	userID := primitive.NewObjectID()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.UserID == userID && n.Kind == KindBookingRequest
	})).Return(&Notification{ID: primitive.NewObjectID(), UserID: userID, Kind: KindBookingRequest}, nil)

	n, err := b.Emit(context.Background(), userID, KindBookingRequest, bson.M{"x": 1})
	require.NoError(t, err)
	assert.NotNil(t, n)
	assert.Contains(t, c.deleted, cacheKey(userID))
	assert.Len(t, d.enqueued, 1)
	repo.AssertExpectations(t)
}

func TestEmitOnceForBooking_SkipsWhenAlreadyExists(t *testing.T) {
	repo := new(MockRepository)
	c := &fakeCache{}
	d := &fakeDispatcher{}
	b := NewBus(repo, c, d)

	userID, bookingID := primitive.NewObjectID(), primitive.NewObjectID()
	repo.On("ExistsForBooking", mock.Anything, userID, bookingID, KindRateDriver).Return(true, nil)

	n, err := b.EmitOnceForBooking(context.Background(), userID, bookingID, KindRateDriver, bson.M{})
	require.NoError(t, err)
	assert.Nil(t, n)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEmitOnceForBooking_EmitsWhenAbsent(t *testing.T) {
	repo := new(MockRepository)
	c := &fakeCache{}
	d := &fakeDispatcher{}
	b := NewBus(repo, c, d)

	userID, bookingID := primitive.NewObjectID(), primitive.NewObjectID()
	repo.On("ExistsForBooking", mock.Anything, userID, bookingID, KindRateDriver).Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(&Notification{ID: primitive.NewObjectID()}, nil)

	n, err := b.EmitOnceForBooking(context.Background(), userID, bookingID, KindRateDriver, bson.M{})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestEmit_UnaffectedKindNeverChecksExistence(t *testing.T) {
	repo := new(MockRepository)
	c := &fakeCache{}
	d := &fakeDispatcher{}
	b := NewBus(repo, c, d)

	userID := primitive.NewObjectID()
	repo.On("Create", mock.Anything, mock.Anything).Return(&Notification{ID: primitive.NewObjectID()}, nil)

	_, err := b.Emit(context.Background(), userID, KindOfferReceived, bson.M{})
	require.NoError(t, err)
	repo.AssertNotCalled(t, "ExistsForBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
