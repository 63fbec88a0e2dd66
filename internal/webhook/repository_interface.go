package webhook

import "context"

// Repository is the idempotency ledger backing the reconciler. Record
// returns false when the event id already exists, so the caller can
// skip re-applying its side effects.
type Repository interface {
	Record(ctx context.Context, pspEventID, eventType string) (recorded bool, err error)
	MarkProcessed(ctx context.Context, pspEventID string) error
	MarkFailed(ctx context.Context, pspEventID, reason string) error
}
