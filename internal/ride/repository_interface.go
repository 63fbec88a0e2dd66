package ride

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository is the Ride aggregate's persistence port, including the
// CapacityStore operations spec.md §4.1 requires. TryReserve/Release
// are the only capacity-mutating calls in the system; every other
// component reaches capacity through them rather than touching
// seatsLeft/luggageLeft directly. Two callers hold reservation methods
// today: booking.Service (passenger books a published ride) and
// request.Service (a driver's offer against a broadcast request is
// accepted onto their own ride).
type Repository interface {
	Create(ctx context.Context, r *Ride) (*Ride, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Ride, error)
	Update(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, req UpdateRideRequest) (*Ride, error)
	ListByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Ride, int64, error)

	// TryReserve atomically decrements seatsLeft/luggageLeft, succeeding
	// only if the ride is active and has enough of both. At most one
	// concurrent caller racing for the last seat can succeed.
	TryReserve(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error)
	// Release restores capacity, clamped to seatsTotal/luggageTotal so
	// a double-release can never push a ride over its original size.
	Release(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) error
	// Freeze marks a ride cancelled, which also blocks further
	// TryReserve calls via the status=active filter.
	Freeze(ctx context.Context, rideID primitive.ObjectID) error
	// Complete marks an active ride completed; used by the scheduler
	// sweep (open-question decision #3) once departure is well past.
	Complete(ctx context.Context, rideID primitive.ObjectID) error

	// SweepDepartedActive returns ids of active rides whose departureAt
	// is older than cutoff, for the completion sweep.
	SweepDepartedActive(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error)

	// Search implements spec.md §4.7's ride search: nearest-to-point
	// via GeoIndex when f.PickupLon/Lat are set, otherwise attribute
	// filter ordered by departureAt ascending. Returned Summaries never
	// carry Route (the "exclude the full route polyline" projection
	// rule); DistanceM is populated only in the geo-ordered branch.
	Search(ctx context.Context, f SearchFilter, page, limit int) ([]Summary, int64, error)
}
