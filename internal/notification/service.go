package notification

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/cache"
	"airpool/internal/metrics"
)

const cacheTTL = 5 * time.Minute

// Bus is spec.md §4.8's NotificationBus: every engine that needs to
// notify a user depends on this interface, never on Repository
// directly, so the persist-then-invalidate sequence can't be skipped
// by a careless caller.
type Bus interface {
	Emit(ctx context.Context, userID primitive.ObjectID, kind Kind, payload bson.M) (*Notification, error)
	// EmitOnceForBooking is Emit guarded by the at-most-one-per-booking
	// rule dedupedKinds enforces for rate_driver/rate_passenger. It is
	// a silent no-op (not an error) if a matching notification already
	// exists, since the caller (RatingScheduler) reruns on a fixed
	// interval and re-emission is expected, not exceptional.
	EmitOnceForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind Kind, payload bson.M) (*Notification, error)
	List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
}

type bus struct {
	repo       Repository
	cache      cache.Cache
	dispatcher Dispatcher
}

func NewBus(repo Repository, c cache.Cache, d Dispatcher) Bus {
	return &bus{repo: repo, cache: c, dispatcher: d}
}

func cacheKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("notifications:%s", userID.Hex())
}

func (b *bus) Emit(ctx context.Context, userID primitive.ObjectID, kind Kind, payload bson.M) (*Notification, error) {
	n := &Notification{UserID: userID, Kind: kind, Payload: payload}
	created, err := b.repo.Create(ctx, n)
	if err != nil {
		return nil, apperr.Transient("failed to persist notification", err)
	}

	// Cache invalidation and outbound dispatch are best-effort per
	// spec.md §7: neither may fail the mutation that triggered them.
	b.cache.Del(ctx, cacheKey(userID))
	b.dispatcher.Enqueue(ctx, created)
	metrics.RecordNotification(string(kind))
	return created, nil
}

func (b *bus) EmitOnceForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind Kind, payload bson.M) (*Notification, error) {
	if dedupedKinds[kind] {
		exists, err := b.repo.ExistsForBooking(ctx, userID, bookingID, kind)
		if err != nil {
			return nil, apperr.Transient("failed to check existing notification", err)
		}
		if exists {
			return nil, nil
		}
	}
	return b.Emit(ctx, userID, kind, payload)
}

func (b *bus) List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Notification, int64, error) {
	return b.repo.ListByUser(ctx, userID, page, limit)
}

func (b *bus) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return b.repo.MarkRead(ctx, id, userID)
}
