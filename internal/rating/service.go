package rating

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/booking"
	"airpool/internal/clock"
	"airpool/internal/mongoutil"
	"airpool/internal/notification"
	"airpool/internal/ride"
	"airpool/internal/user"
)

// rateableWindow is invariant I7: a Rating may exist only once this
// long has passed since departure.
const rateableWindow = 30 * time.Minute

type Service interface {
	CanRate(ctx context.Context, bookingID, fromUserID primitive.ObjectID) (bool, error)
	Create(ctx context.Context, fromUserID primitive.ObjectID, req CreateRatingRequest) (*Rating, error)
	Stats(ctx context.Context, userID primitive.ObjectID) (Stats, error)
	Pending(ctx context.Context, userID primitive.ObjectID) ([]PendingPrompt, error)
}

type service struct {
	repo     Repository
	bookings booking.Repository
	rides    ride.Repository
	users    user.Repository
	notifier notification.Bus
	clock    clock.Clock
}

func NewService(repo Repository, bookings booking.Repository, rides ride.Repository, users user.Repository, notifier notification.Bus, c clock.Clock) Service {
	return &service{repo: repo, bookings: bookings, rides: rides, users: users, notifier: notifier, clock: c}
}

// participant resolves who fromUserID may rate for a booking, and
// which side of the Type enum the resulting Rating carries. Returns
// apperr.Permission if fromUserID isn't the ride's driver or the
// booking's passenger.
func (s *service) participant(b *booking.Booking, r *ride.Ride, fromUserID primitive.ObjectID) (toUserID primitive.ObjectID, typ Type, err error) {
	switch fromUserID {
	case b.PassengerID:
		return r.DriverID, TypePassengerToDriver, nil
	case r.DriverID:
		return b.PassengerID, TypeDriverToPassenger, nil
	default:
		return primitive.NilObjectID, "", apperr.Permission("not a participant in this booking")
	}
}

func (s *service) loadRateable(ctx context.Context, bookingID primitive.ObjectID) (*booking.Booking, *ride.Ride, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, apperr.NotFound("booking not found")
	}
	if b.Status != booking.StatusAccepted {
		return nil, nil, apperr.State("booking was never accepted")
	}
	r, err := s.rides.FindByID(ctx, b.RideID)
	if err != nil {
		return nil, nil, apperr.NotFound("ride not found")
	}
	return b, r, nil
}

func (s *service) CanRate(ctx context.Context, bookingID, fromUserID primitive.ObjectID) (bool, error) {
	b, r, err := s.loadRateable(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if _, _, err := s.participant(b, r, fromUserID); err != nil {
		return false, err
	}
	if exists, err := s.repo.ExistsForBooking(ctx, bookingID, fromUserID); err != nil {
		return false, apperr.Transient("failed to check rating status", err)
	} else if exists {
		return false, nil
	}
	return !s.clock.Now().Before(r.DepartureAt.Add(rateableWindow)), nil
}

func (s *service) Create(ctx context.Context, fromUserID primitive.ObjectID, req CreateRatingRequest) (*Rating, error) {
	bookingID, err := mongoutil.ParseID(req.BookingID)
	if err != nil {
		return nil, apperr.Validation("invalid booking id")
	}

	b, r, err := s.loadRateable(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	toUserID, typ, err := s.participant(b, r, fromUserID)
	if err != nil {
		return nil, err
	}
	if s.clock.Now().Before(r.DepartureAt.Add(rateableWindow)) {
		return nil, apperr.State("too early to rate this ride")
	}

	created, err := s.repo.Create(ctx, &Rating{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		BookingID:  bookingID,
		RideID:     r.ID,
		Type:       typ,
		Stars:      req.Stars,
		Comment:    req.Comment,
	})
	if err != nil {
		if err == ErrDuplicateRating {
			return nil, apperr.Conflict("already rated")
		}
		return nil, apperr.Transient("failed to save rating", err)
	}

	if err := s.users.ApplyRating(ctx, toUserID, req.Stars); err != nil {
		return created, nil
	}
	_, _ = s.notifier.Emit(ctx, toUserID, notification.KindRatingReceived, bson.M{
		"bookingId": bookingID, "stars": req.Stars, "fromUserId": fromUserID,
	})
	return created, nil
}

func (s *service) Stats(ctx context.Context, userID primitive.ObjectID) (Stats, error) {
	return s.repo.Stats(ctx, userID)
}

// Pending walks the caller's accepted, past-window bookings (both as
// passenger and, via their rides, as driver) and returns the ones
// they have not yet rated.
func (s *service) Pending(ctx context.Context, userID primitive.ObjectID) ([]PendingPrompt, error) {
	var prompts []PendingPrompt
	cutoff := s.clock.Now().Add(-rateableWindow)

	passengerBookings, _, err := s.bookings.ListByPassenger(ctx, userID, 1, 100)
	if err != nil {
		return nil, apperr.Transient("failed to load bookings", err)
	}
	for _, b := range passengerBookings {
		if b.Status != booking.StatusAccepted {
			continue
		}
		r, err := s.rides.FindByID(ctx, b.RideID)
		if err != nil || r.DepartureAt.After(cutoff) {
			continue
		}
		if exists, _ := s.repo.ExistsForBooking(ctx, b.ID, userID); exists {
			continue
		}
		prompts = append(prompts, PendingPrompt{
			BookingID: b.ID, RideID: r.ID, Counterpart: r.DriverID,
			Type: TypePassengerToDriver, DepartureAt: r.DepartureAt,
		})
	}

	driverRides, _, err := s.rides.ListByDriver(ctx, userID, 1, 100)
	if err != nil {
		return nil, apperr.Transient("failed to load rides", err)
	}
	for _, r := range driverRides {
		if r.DepartureAt.After(cutoff) {
			continue
		}
		bookings, _, err := s.bookings.ListByRide(ctx, r.ID, 1, 200)
		if err != nil {
			continue
		}
		for _, b := range bookings {
			if b.Status != booking.StatusAccepted {
				continue
			}
			if exists, _ := s.repo.ExistsForBooking(ctx, b.ID, userID); exists {
				continue
			}
			prompts = append(prompts, PendingPrompt{
				BookingID: b.ID, RideID: r.ID, Counterpart: b.PassengerID,
				Type: TypeDriverToPassenger, DepartureAt: r.DepartureAt,
			})
		}
	}
	return prompts, nil
}
