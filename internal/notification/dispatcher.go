package notification

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"airpool/internal/logger"
)

// Dispatcher enqueues a persisted notification for the outbound
// transport worker (email/push delivery), which spec.md §1 keeps out
// of scope. Grounded on the teacher's internal/email redis-queue job
// dispatch (LPush "emails" / BRPop consumer): the queueing mechanic is
// kept, generalized from an email-specific job to any notification
// Kind, but no consumer is implemented here since the transport itself
// is an external collaborator.
type Dispatcher interface {
	Enqueue(ctx context.Context, n *Notification)
}

type redisDispatcher struct {
	client *redis.Client
}

func NewRedisDispatcher(client *redis.Client) Dispatcher {
	return &redisDispatcher{client: client}
}

func (d *redisDispatcher) Enqueue(ctx context.Context, n *Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		logger.Error("failed to marshal notification for outbound dispatch", "err", err)
		return
	}
	if err := d.client.LPush(ctx, "notifications:outbound", data).Err(); err != nil {
		logger.Error("failed to enqueue notification for outbound dispatch", "err", err)
	}
}

// NullDispatcher is used when REDIS_URL is unset. Outbound dispatch is
// best-effort and must never block the mutation that triggered it
// (spec.md §7: "Notification failures never block the owning
// mutation"), so a disabled queue is a silent no-op, not an error.
type NullDispatcher struct{}

func (NullDispatcher) Enqueue(context.Context, *Notification) {}
