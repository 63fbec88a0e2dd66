package request

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
	"airpool/internal/mongoutil"
)

var (
	ErrNotFound          = errors.New("ride request not found")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrTransitionRejected = errors.New("ride request already left the expected state")
	ErrDuplicateOffer    = errors.New("driver already has a pending offer on this request")
)

type repository struct {
	client   *mongo.Client
	requests *mongo.Collection
	offers   *mongo.Collection
	clock    clock.Clock
}

func NewRepository(client *mongo.Client, db *mongo.Database, c clock.Clock) Repository {
	return &repository{
		client:   client,
		requests: db.Collection("rideRequests"),
		offers:   db.Collection("offers"),
		clock:    c,
	}
}

func (r *repository) CreateRequest(ctx context.Context, req *RideRequest) (*RideRequest, error) {
	now := r.clock.Now()
	req.ID = primitive.NewObjectID()
	req.Status = StatusPending
	req.PaymentStatus = PaymentUnpaid
	req.CreatedAt = now
	req.UpdatedAt = now

	if _, err := r.requests.InsertOne(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*RideRequest, error) {
	var req RideRequest
	err := r.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]RideRequest, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	filter := bson.M{"passengerId": passengerID}

	total, err := r.requests.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.requests.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var reqs []RideRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *repository) TransitionRequest(ctx context.Context, id primitive.ObjectID, from, to Status) (*RideRequest, error) {
	var req RideRequest
	err := r.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": r.clock.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTransitionRejected
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) SweepExpirable(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	cur, err := r.requests.Find(ctx, bson.M{
		"status": StatusPending, "expiresAt": bson.M{"$lt": cutoff},
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

func (r *repository) ExpireOne(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.requests.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{"status": StatusExpired, "updatedAt": r.clock.Now()}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrTransitionRejected
	}
	return nil
}

func requestAttrFilter(f SearchFilter) bson.M {
	filter := bson.M{"status": StatusPending}
	if !f.AirportID.IsZero() {
		filter["airportId"] = f.AirportID
	}
	if f.Direction != "" {
		filter["direction"] = f.Direction
	}
	if f.City != "" {
		filter["location.city"] = f.City
	}
	if f.Date != nil {
		dayStart := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		filter["preferredAt"] = bson.M{"$gte": dayStart, "$lt": dayEnd}
	}
	return filter
}

// Search implements spec.md §4.7's request-side browse: pending,
// unexpired requests only, annotated with hasUserOffered for the
// querying driver.
func (r *repository) Search(ctx context.Context, f SearchFilter, requestingDriverID primitive.ObjectID, page, limit int) ([]Summary, int64, error) {
	skip, lim := mongoutil.Page(page, limit)

	var reqs []RideRequest
	var total int64
	var err error
	if f.PickupLon != nil && f.PickupLat != nil {
		reqs, total, err = r.searchNear(ctx, f, skip, lim)
	} else {
		reqs, total, err = r.searchByAttrs(ctx, f, skip, lim)
	}
	if err != nil {
		return nil, 0, err
	}

	offered, err := r.offeredRequestIDs(ctx, requestingDriverID)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]Summary, len(reqs))
	for i, req := range reqs {
		summaries[i] = Summary{RideRequest: req, HasUserOffered: offered[req.ID]}
	}
	return summaries, total, nil
}

func (r *repository) searchByAttrs(ctx context.Context, f SearchFilter, skip, lim int64) ([]RideRequest, int64, error) {
	filter := requestAttrFilter(f)
	filter["expiresAt"] = bson.M{"$gt": r.clock.Now()}

	total, err := r.requests.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.requests.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "preferredAt", Value: 1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var reqs []RideRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *repository) searchNear(ctx context.Context, f SearchFilter, skip, lim int64) ([]RideRequest, int64, error) {
	radius := f.RadiusMeters
	if radius <= 0 {
		radius = 8000
	}
	extra := requestAttrFilter(f)
	extra["expiresAt"] = bson.M{"$gt": r.clock.Now()}

	pipeline := mongo.Pipeline{
		geo.NearStage("location.point", *f.PickupLon, *f.PickupLat, radius, "distanceMeters", extra),
		{{Key: "$skip", Value: skip}},
		{{Key: "$limit", Value: lim}},
	}
	cur, err := r.requests.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		RideRequest    `bson:",inline"`
		DistanceMeters float64 `bson:"distanceMeters"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	reqs := make([]RideRequest, len(docs))
	for i, d := range docs {
		reqs[i] = d.RideRequest
	}

	countPipeline := mongo.Pipeline{
		geo.NearStage("location.point", *f.PickupLon, *f.PickupLat, radius, "distanceMeters", extra),
		{{Key: "$count", Value: "n"}},
	}
	countCur, err := r.requests.Aggregate(ctx, countPipeline)
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
	return reqs, total, nil
}

func (r *repository) offeredRequestIDs(ctx context.Context, driverID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := map[primitive.ObjectID]bool{}
	if driverID.IsZero() {
		return out, nil
	}
	cur, err := r.offers.Find(ctx, bson.M{"driverId": driverID}, options.Find().SetProjection(bson.M{"requestId": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		RequestID primitive.ObjectID `bson:"requestId"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.RequestID] = true
	}
	return out, nil
}

func (r *repository) CreateOffer(ctx context.Context, o *Offer) (*Offer, error) {
	now := r.clock.Now()
	o.ID = primitive.NewObjectID()
	o.Status = OfferPending
	o.CreatedAt = now
	o.UpdatedAt = now

	if _, err := r.offers.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateOffer
		}
		return nil, err
	}
	return o, nil
}

func (r *repository) FindOfferByID(ctx context.Context, id primitive.ObjectID) (*Offer, error) {
	var o Offer
	err := r.offers.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) ListOffersByRequest(ctx context.Context, requestID primitive.ObjectID) ([]Offer, error) {
	cur, err := r.offers.Find(ctx, bson.M{"requestId": requestID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var offers []Offer
	if err := cur.All(ctx, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Offer, int64, error) {
	skip, lim := mongoutil.Page(page, limit)
	filter := bson.M{"driverId": driverID}

	total, err := r.offers.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.offers.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var offers []Offer
	if err := cur.All(ctx, &offers); err != nil {
		return nil, 0, err
	}
	return offers, total, nil
}

func (r *repository) WithdrawOffer(ctx context.Context, offerID, driverID primitive.ObjectID) error {
	res, err := r.offers.UpdateOne(ctx,
		bson.M{"_id": offerID, "driverId": driverID, "status": OfferPending},
		bson.M{"$set": bson.M{"status": OfferRejected, "updatedAt": r.clock.Now()}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrTransitionRejected
	}
	return nil
}

func (r *repository) RejectOffer(ctx context.Context, offerID primitive.ObjectID) error {
	res, err := r.offers.UpdateOne(ctx,
		bson.M{"_id": offerID, "status": OfferPending},
		bson.M{"$set": bson.M{"status": OfferRejected, "updatedAt": r.clock.Now()}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrTransitionRejected
	}
	return nil
}

// AcceptOfferAtomic implements spec.md I6 in a single Mongo session
// transaction (mongoutil's own doc comment names "offer accept/reject"
// as an intended use), since it touches the chosen offer, every
// sibling offer and the request document together.
func (r *repository) AcceptOfferAtomic(ctx context.Context, chosen *Offer, driverID, rideID primitive.ObjectID, amountGross int64) (*RideRequest, []Offer, error) {
	type result struct {
		req    *RideRequest
		offers []Offer
	}

	res, err := mongoutil.WithTransaction(ctx, r.client, func(sessCtx mongo.SessionContext) (interface{}, error) {
		now := r.clock.Now()

		var req RideRequest
		if err := r.requests.FindOneAndUpdate(sessCtx,
			bson.M{"_id": chosen.RequestID, "status": StatusPending},
			bson.M{"$set": bson.M{
				"status": StatusAccepted, "matchedDriverId": driverID, "matchedRideId": rideID,
				"paymentStatus": PaymentPaid, "amountGross": amountGross, "updatedAt": now,
			}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&req); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrTransitionRejected
			}
			return nil, err
		}

		var acceptedOffer Offer
		if err := r.offers.FindOneAndUpdate(sessCtx,
			bson.M{"_id": chosen.ID, "status": OfferPending},
			bson.M{"$set": bson.M{"status": OfferAccepted, "rideId": rideID, "updatedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&acceptedOffer); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrTransitionRejected
			}
			return nil, err
		}

		if _, err := r.offers.UpdateMany(sessCtx,
			bson.M{"requestId": chosen.RequestID, "status": OfferPending},
			bson.M{"$set": bson.M{"status": OfferRejected, "updatedAt": now}}); err != nil {
			return nil, err
		}

		cur, err := r.offers.Find(sessCtx, bson.M{"requestId": chosen.RequestID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(sessCtx)
		var offers []Offer
		if err := cur.All(sessCtx, &offers); err != nil {
			return nil, err
		}

		return &result{req: &req, offers: offers}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	out := res.(*result)
	return out.req, out.offers, nil
}
