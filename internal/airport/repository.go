package airport

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"airpool/internal/geo"
	"airpool/internal/mongoutil"
)

var ErrNotFound = errors.New("airport not found")

type repository struct {
	airports *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &repository{airports: db.Collection("airports")}
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Airport, error) {
	var a Airport
	err := r.airports.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) FindByIATACode(ctx context.Context, code string) (*Airport, error) {
	var a Airport
	err := r.airports.FindOne(ctx, bson.M{"iataCode": code}).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Search dispatches to the geo, text, or plain-attribute branch
// depending on which query parameters were supplied — the same
// three-way split ride.Repository.Search and request.Repository.Search
// use, just without a dedicated Summary projection (an Airport is
// small enough to return in full).
func (r *repository) Search(ctx context.Context, f SearchFilter, page, limit int) ([]Airport, int64, error) {
	skip, lim := mongoutil.Page(page, limit)

	switch {
	case f.PickupLon != nil && f.PickupLat != nil:
		return r.searchNear(ctx, f, skip, lim)
	case f.Query != "":
		return r.searchByText(ctx, f, skip, lim)
	default:
		return r.searchByAttrs(ctx, f, skip, lim)
	}
}

func (r *repository) attrFilter(f SearchFilter) bson.M {
	filter := bson.M{"isActive": true}
	if f.Country != "" {
		filter["country"] = f.Country
	}
	return filter
}

func (r *repository) searchByAttrs(ctx context.Context, f SearchFilter, skip, lim int64) ([]Airport, int64, error) {
	filter := r.attrFilter(f)

	total, err := r.airports.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.airports.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "iataCode", Value: 1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Airport
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) searchByText(ctx context.Context, f SearchFilter, skip, lim int64) ([]Airport, int64, error) {
	filter := r.attrFilter(f)
	filter["$text"] = bson.M{"$search": f.Query}

	total, err := r.airports.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.airports.Find(ctx, filter, options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Airport
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) searchNear(ctx context.Context, f SearchFilter, skip, lim int64) ([]Airport, int64, error) {
	radius := f.RadiusMeters
	if radius <= 0 {
		radius = 200000
	}
	pipeline := mongo.Pipeline{
		geo.NearStage("location", *f.PickupLon, *f.PickupLat, radius, "distanceMeters", r.attrFilter(f)),
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: lim}},
	}
	cur, err := r.airports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Airport
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}

	total, err := r.airports.CountDocuments(ctx, r.attrFilter(f))
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
