package airport

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the AirportCatalog's persistence port: a small,
// read-mostly collection with a text index (name/city/iataCode/icaoCode)
// and a 2dsphere index on location, per spec.md §4.7's shared GeoIndex.
type Repository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*Airport, error)
	FindByIATACode(ctx context.Context, code string) (*Airport, error)
	Search(ctx context.Context, f SearchFilter, page, limit int) ([]Airport, int64, error)
}
