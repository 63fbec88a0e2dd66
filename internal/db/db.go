package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials MongoDB and verifies the connection with a ping,
// mirroring the teacher's connect-then-ping shape.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, client.Database(dbName), nil
}

// EnsureIndexes creates every index spec.md §6 requires. It plays the
// role the teacher's RunMigrations played: bring the schema (here,
// index set) up to date on boot. Index creation is idempotent, so this
// is safe to call on every startup.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	type spec struct {
		collection string
		models     []mongo.IndexModel
	}

	specs := []spec{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "airports",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "iataCode", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
				{
					Keys: bson.D{
						{Key: "name", Value: "text"},
						{Key: "city", Value: "text"},
						{Key: "iataCode", Value: "text"},
						{Key: "icaoCode", Value: "text"},
					},
				},
			},
		},
		{
			collection: "rides",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "airportId", Value: 1}, {Key: "status", Value: 1}, {Key: "direction", Value: 1}, {Key: "departureAt", Value: 1}}},
				{Keys: bson.D{{Key: "airportId", Value: 1}, {Key: "status", Value: 1}, {Key: "direction", Value: 1}, {Key: "seatsLeft", Value: 1}, {Key: "departureAt", Value: 1}}},
				{Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "departureAt", Value: -1}}},
				{Keys: bson.D{{Key: "route", Value: "2dsphere"}}},
			},
		},
		{
			collection: "bookings",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "rideId", Value: 1}, {Key: "passengerId", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "rideRequests",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "location.point", Value: "2dsphere"}}},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
			},
		},
		{
			collection: "wallets",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "transactions",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "walletId", Value: 1}, {Key: "createdAt", Value: -1}}},
				{Keys: bson.D{{Key: "referenceKind", Value: 1}, {Key: "referenceId", Value: 1}}},
				{Keys: bson.D{{Key: "pspIntentId", Value: 1}}, Options: options.Index().SetSparse(true)},
			},
		},
		{
			collection: "payouts",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			collection: "notifications",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			collection: "ratings",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "fromUserId", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "messages",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "threadId", Value: 1}, {Key: "createdAt", Value: 1}}},
			},
		},
		{
			collection: "emailOtps",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			collection: "passwordResets",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			collection: "webhookEvents",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: "offers",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "requestId", Value: 1}, {Key: "driverId", Value: 1}, {Key: "status", Value: 1}}},
				// spec's "at most one pending Offer per (requestId, driverId)"
				// invariant, enforced as a partial unique index rather than
				// a full one since accepted/rejected offers must coexist.
				{
					Keys: bson.D{{Key: "requestId", Value: 1}, {Key: "driverId", Value: 1}},
					Options: options.Index().SetUnique(true).
						SetPartialFilterExpression(bson.M{"status": "pending"}),
				},
			},
		},
	}

	for _, s := range specs {
		if len(s.models) == 0 {
			continue
		}
		if _, err := database.Collection(s.collection).Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", s.collection, err)
		}
	}
	return nil
}
