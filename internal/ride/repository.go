package ride

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"airpool/internal/clock"
	"airpool/internal/geo"
	"airpool/internal/metrics"
	"airpool/internal/mongoutil"
)

var (
	ErrNotFound             = errors.New("ride not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
)

type repository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewRepository(db *mongo.Database, c clock.Clock) Repository {
	return &repository{col: db.Collection("rides"), clock: c}
}

func (r *repository) Create(ctx context.Context, ride *Ride) (*Ride, error) {
	now := r.clock.Now()
	ride.ID = primitive.NewObjectID()
	ride.SeatsLeft = ride.SeatsTotal
	ride.LuggageLeft = ride.LuggageTotal
	ride.Status = StatusActive
	ride.CreatedAt = now
	ride.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Ride, error) {
	var ride Ride
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ride, nil
}

func (r *repository) Update(ctx context.Context, id, driverID primitive.ObjectID, req UpdateRideRequest) (*Ride, error) {
	set := bson.M{"updatedAt": r.clock.Now()}
	if req.DepartureAt != nil {
		set["departureAt"] = *req.DepartureAt
	}
	if req.PricePerSeat != nil {
		set["pricePerSeat"] = *req.PricePerSeat
	}
	if req.Comment != nil {
		set["comment"] = *req.Comment
	}

	var ride Ride
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "driverId": driverID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ride, nil
}

func (r *repository) ListByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Ride, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	filter := bson.M{"driverId": driverID}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "departureAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rides []Ride
	if err := cur.All(ctx, &rides); err != nil {
		return nil, 0, err
	}
	return rides, total, nil
}

// TryReserve implements spec.md §4.1's conditional decrement:
// `WHERE seatsLeft >= seats AND luggageLeft >= luggage AND status = active`.
// A single UpdateOne with that filter is atomic at the document
// level, so two concurrent callers racing for the last seat can never
// both match.
func (r *repository) TryReserve(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error) {
	filter := bson.M{
		"_id":         rideID,
		"status":      StatusActive,
		"seatsLeft":   bson.M{"$gte": seats},
		"luggageLeft": bson.M{"$gte": luggage},
	}
	update := bson.M{
		"$inc": bson.M{"seatsLeft": -seats, "luggageLeft": -luggage},
		"$set": bson.M{"updatedAt": r.clock.Now()},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 0 {
		metrics.RecordCapacityConflict()
		return false, nil
	}
	return true, nil
}

// Release restores capacity via an aggregation-pipeline update so the
// increment can be clamped with $min against seatsTotal/luggageTotal
// in the same atomic write — the "bug-safety clamp" spec.md calls for.
func (r *repository) Release(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "seatsLeft", Value: bson.D{{Key: "$min", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{"$seatsLeft", seats}}},
				"$seatsTotal",
			}}}},
			{Key: "luggageLeft", Value: bson.D{{Key: "$min", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{"$luggageLeft", luggage}}},
				"$luggageTotal",
			}}}},
			{Key: "updatedAt", Value: r.clock.Now()},
		}}},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": rideID}, pipeline)
	return err
}

func (r *repository) Freeze(ctx context.Context, rideID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": rideID}, bson.M{"$set": bson.M{
		"status": StatusCancelled, "updatedAt": r.clock.Now(),
	}})
	return err
}

func (r *repository) Complete(ctx context.Context, rideID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": rideID, "status": StatusActive},
		bson.M{"$set": bson.M{"status": StatusCompleted, "updatedAt": r.clock.Now()}})
	return err
}

// projection excludes route (spec §4.7: "large, rarely needed on list
// endpoints") from every Search result.
var summaryProjection = bson.M{"route": 0}

func attrFilter(f SearchFilter) bson.M {
	filter := bson.M{"status": StatusActive}
	if !f.AirportID.IsZero() {
		filter["airportId"] = f.AirportID
	}
	if f.Direction != "" {
		filter["direction"] = f.Direction
	}
	if f.MinSeats > 0 {
		filter["seatsLeft"] = bson.M{"$gte": f.MinSeats}
	}
	if f.Date != nil {
		dayStart := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		filter["departureAt"] = bson.M{"$gte": dayStart, "$lt": dayEnd}
	}
	return filter
}

func (r *repository) Search(ctx context.Context, f SearchFilter, page, limit int) ([]Summary, int64, error) {
	skip, lim := mongoutil.Page(page, limit)

	if f.PickupLon != nil && f.PickupLat != nil {
		return r.searchNear(ctx, f, skip, lim)
	}
	return r.searchByAttrs(ctx, f, skip, lim)
}

func (r *repository) searchByAttrs(ctx context.Context, f SearchFilter, skip, lim int64) ([]Summary, int64, error) {
	filter := attrFilter(f)
	if _, ok := filter["departureAt"]; !ok {
		filter["departureAt"] = bson.M{"$gt": r.clock.Now()}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.col.Find(ctx, filter, options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "departureAt", Value: 1}}).
		SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var rides []Ride
	if err := cur.All(ctx, &rides); err != nil {
		return nil, 0, err
	}
	return toSummaries(rides), total, nil
}

func (r *repository) searchNear(ctx context.Context, f SearchFilter, skip, lim int64) ([]Summary, int64, error) {
	radius := f.RadiusMeters
	if radius <= 0 {
		radius = 8000
	}
	extra := attrFilter(f)
	if _, ok := extra["departureAt"]; !ok {
		extra["departureAt"] = bson.M{"$gt": r.clock.Now()}
	}
	// $geoNear's implicit status/airportId/departure filter is folded
	// into its own "query" clause since it must be the pipeline's
	// first stage and can't follow a $match.
	delete(extra, "status")
	extra["status"] = StatusActive

	pipeline := mongo.Pipeline{
		geo.NearStage("route", *f.PickupLon, *f.PickupLat, radius, "distanceMeters", extra),
		{{Key: "$project", Value: bson.D{{Key: "route", Value: 0}}}},
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: lim}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		Ride           `bson:",inline"`
		DistanceMeters float64 `bson:"distanceMeters"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	summaries := make([]Summary, len(docs))
	for i, d := range docs {
		s := d.Ride.ToSummary()
		dist := d.DistanceMeters
		s.DistanceM = &dist
		summaries[i] = s
	}

	countPipeline := mongo.Pipeline{
		geo.NearStage("route", *f.PickupLon, *f.PickupLat, radius, "distanceMeters", extra),
		{{Key: "$count", Value: "n"}},
	}
	countCur, err := r.col.Aggregate(ctx, countPipeline)
	if err != nil {
		return nil, 0, err
	}
	defer countCur.Close(ctx)
	var counts []struct {
		N int64 `bson:"n"`
	}
	if err := countCur.All(ctx, &counts); err != nil {
		return nil, 0, err
	}
	var total int64
	if len(counts) > 0 {
		total = counts[0].N
	}

	return summaries, total, nil
}

func toSummaries(rides []Ride) []Summary {
	out := make([]Summary, len(rides))
	for i, r := range rides {
		out[i] = r.ToSummary()
	}
	return out
}

func (r *repository) SweepDepartedActive(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	cur, err := r.col.Find(ctx, bson.M{
		"status":      StatusActive,
		"departureAt": bson.M{"$lt": cutoff},
	}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}
