package rating

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/booking"
	"airpool/internal/clock"
	"airpool/internal/logger"
	"airpool/internal/metrics"
	"airpool/internal/notification"
	"airpool/internal/ride"
)

// TickInterval is spec.md §4.9's fixed sweep period. The same tick
// that emits rating prompts also marks the ride completed
// (open-question decision #3 in the design notes), which is what
// keeps a ride from being swept twice.
const TickInterval = 5 * time.Minute

// Scheduler is the RatingScheduler background loop: it finds rides
// whose departure is far enough in the past to be over, prompts both
// sides to rate each other, and retires the ride to completed.
type Scheduler struct {
	rides    ride.Repository
	bookings booking.Repository
	ratings  Repository
	notifier notification.Bus
	clock    clock.Clock
}

func NewScheduler(rides ride.Repository, bookings booking.Repository, ratings Repository, notifier notification.Bus, c clock.Clock) *Scheduler {
	return &Scheduler{rides: rides, bookings: bookings, ratings: ratings, notifier: notifier, clock: c}
}

// Run blocks, ticking every TickInterval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				logger.Error("rating scheduler tick failed", "err", err)
			}
		}
	}
}

// Tick runs one sweep. Exported so it can be driven from a test or a
// manual admin trigger without waiting on the ticker.
func (s *Scheduler) Tick(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-rateableWindow)
	rideIDs, err := s.rides.SweepDepartedActive(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, rideID := range rideIDs {
		r, err := s.rides.FindByID(ctx, rideID)
		if err != nil {
			logger.Error("rating sweep: ride lookup failed", "rideId", rideID.Hex(), "err", err)
			continue
		}

		bookings, _, err := s.bookings.ListByRide(ctx, rideID, 1, 500)
		if err != nil {
			logger.Error("rating sweep: booking list failed", "rideId", rideID.Hex(), "err", err)
			continue
		}
		for _, b := range bookings {
			if b.Status != booking.StatusAccepted {
				continue
			}
			s.promptOnce(ctx, b.PassengerID, b.ID, notification.KindRateDriver, bson.M{
				"bookingId": b.ID, "rideId": rideID, "driverId": r.DriverID,
			})
			s.promptOnce(ctx, r.DriverID, b.ID, notification.KindRatePassenger, bson.M{
				"bookingId": b.ID, "rideId": rideID, "passengerId": b.PassengerID,
			})
		}

		if err := s.rides.Complete(ctx, rideID); err != nil {
			logger.Error("rating sweep: ride completion failed", "rideId", rideID.Hex(), "err", err)
		}
	}
	return nil
}

// promptOnce checks whether the recipient already rated this booking
// before emitting — a Rating existing means they already acted on an
// earlier prompt, so re-emitting would be noise, not a resend.
func (s *Scheduler) promptOnce(ctx context.Context, userID, bookingID primitive.ObjectID, kind notification.Kind, payload bson.M) {
	exists, err := s.ratings.ExistsForBooking(ctx, bookingID, userID)
	if err != nil {
		logger.Error("rating sweep: existence check failed", "bookingId", bookingID.Hex(), "err", err)
		return
	}
	if exists {
		return
	}
	if _, err := s.notifier.EmitOnceForBooking(ctx, userID, bookingID, kind, payload); err != nil {
		logger.Error("rating sweep: notification emit failed", "bookingId", bookingID.Hex(), "err", err)
		return
	}
	metrics.RecordRatingPromptEmitted()
}
