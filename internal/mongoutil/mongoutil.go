// Package mongoutil holds small helpers shared by every repository:
// ObjectID parsing, pagination math, and the WithTransaction wrapper
// used wherever a write must touch more than one collection atomically
// (spec.md's ledger-append-plus-wallet-update, offer accept/reject,
// capacity reserve-plus-booking-insert).
package mongoutil

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ParseID parses a hex string into an ObjectID, returning the driver's
// parse error unchanged; callers surface it as a clean validation error.
func ParseID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// Page clamps pagination parameters to sane bounds.
func Page(page, limit int) (skip, lim int64) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return int64((page - 1) * limit), int64(limit)
}

// WithTransaction runs fn inside a MongoDB session transaction and
// retries on transient transaction errors, per the driver's documented
// retry contract. fn must be idempotent w.r.t. retries (it should only
// issue commands against the session-bound context it's given).
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(sessCtx mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	sess, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	return sess.WithTransaction(ctx, fn)
}
