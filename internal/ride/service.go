package ride

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/clock"
)

// Service is the CRUD surface around the Ride aggregate that spec.md
// §6's `/rides` endpoints need; the capacity reservation itself is
// driven by booking.Service and request.Service, which depend on
// Repository directly rather than on this Service.
type Service interface {
	Create(ctx context.Context, driverID primitive.ObjectID, req CreateRideRequest) (*Ride, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Ride, error)
	Update(ctx context.Context, id, driverID primitive.ObjectID, req UpdateRideRequest) (*Ride, error)
	MyRides(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Ride, int64, error)
	Search(ctx context.Context, f SearchFilter, page, limit int) ([]Summary, int64, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, c clock.Clock) Service {
	return &service{repo: repo, clock: c}
}

func (s *service) Create(ctx context.Context, driverID primitive.ObjectID, req CreateRideRequest) (*Ride, error) {
	airportID, err := primitive.ObjectIDFromHex(req.AirportID)
	if err != nil {
		return nil, apperr.Validation("invalid airportId")
	}
	if !req.DepartureAt.After(s.clock.Now()) {
		return nil, apperr.State("departure must be in the future")
	}
	if req.SeatsTotal < 1 {
		return nil, apperr.Validation("seatsTotal must be at least 1")
	}

	route := Route{Type: "LineString"}
	if len(req.Waypoints) >= 2 {
		route = NewRoute(req.Waypoints)
	} else {
		// Two-point fallback per spec.md §3: home <-> airport, since no
		// routing service result was supplied.
		route = NewRoute([][2]float64{{req.Home.Lon, req.Home.Lat}, {req.Home.Lon, req.Home.Lat}})
	}

	r := &Ride{
		DriverID:     driverID,
		AirportID:    airportID,
		Direction:    req.Direction,
		Home:         req.Home,
		DepartureAt:  req.DepartureAt,
		SeatsTotal:   req.SeatsTotal,
		LuggageTotal: req.LuggageTotal,
		PricePerSeat: req.PricePerSeat,
		Route:        route,
		Comment:      req.Comment,
	}
	return s.repo.Create(ctx, r)
}

func (s *service) Get(ctx context.Context, id primitive.ObjectID) (*Ride, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("ride not found")
	}
	return r, nil
}

func (s *service) Update(ctx context.Context, id, driverID primitive.ObjectID, req UpdateRideRequest) (*Ride, error) {
	r, err := s.repo.Update(ctx, id, driverID, req)
	if err != nil {
		if err == ErrNotFound {
			return nil, apperr.NotFound("ride not found")
		}
		return nil, err
	}
	return r, nil
}

func (s *service) MyRides(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Ride, int64, error) {
	return s.repo.ListByDriver(ctx, driverID, page, limit)
}

func (s *service) Search(ctx context.Context, f SearchFilter, page, limit int) ([]Summary, int64, error) {
	return s.repo.Search(ctx, f, page, limit)
}
