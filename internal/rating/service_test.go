package rating

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/booking"
	"airpool/internal/clock"
	"airpool/internal/notification"
	"airpool/internal/ride"
	"airpool/internal/user"
)

type mockRatingRepo struct{ mock.Mock }

func (m *mockRatingRepo) Create(ctx context.Context, r *Rating) (*Rating, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Rating), args.Error(1)
}
func (m *mockRatingRepo) ExistsForBooking(ctx context.Context, bookingID, fromUserID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, bookingID, fromUserID)
	return args.Bool(0), args.Error(1)
}
func (m *mockRatingRepo) Stats(ctx context.Context, userID primitive.ObjectID) (Stats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Stats), args.Error(1)
}

type mockBookingRepo struct{ mock.Mock }

func (m *mockBookingRepo) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}
func (m *mockBookingRepo) FindByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]booking.Booking, int64, error) {
	args := m.Called(ctx, passengerID, page, limit)
	var out []booking.Booking
	if args.Get(0) != nil {
		out = args.Get(0).([]booking.Booking)
	}
	return out, int64(len(out)), args.Error(1)
}
func (m *mockBookingRepo) ListByRide(ctx context.Context, rideID primitive.ObjectID, page, limit int) ([]booking.Booking, int64, error) {
	args := m.Called(ctx, rideID, page, limit)
	var out []booking.Booking
	if args.Get(0) != nil {
		out = args.Get(0).([]booking.Booking)
	}
	return out, int64(len(out)), args.Error(2)
}
func (m *mockBookingRepo) FindByPSPIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) Transition(ctx context.Context, id primitive.ObjectID, from, to booking.Status) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) UpdateSeats(ctx context.Context, id, passengerID primitive.ObjectID, seats, luggage int) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookingRepo) SetPaid(ctx context.Context, id primitive.ObjectID, method booking.PaymentMethod, pspIntentID string, grossAmount int64) error {
	return nil
}
func (m *mockBookingRepo) SetPaymentFailed(ctx context.Context, id primitive.ObjectID) error { return nil }
func (m *mockBookingRepo) SetRefunded(ctx context.Context, id primitive.ObjectID, refundID string, reason booking.RefundReason) error {
	return nil
}

type mockRideRepo struct{ mock.Mock }

func (m *mockRideRepo) Create(ctx context.Context, r *ride.Ride) (*ride.Ride, error) { return nil, nil }
func (m *mockRideRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*ride.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ride.Ride), args.Error(1)
}
func (m *mockRideRepo) Update(ctx context.Context, id, driverID primitive.ObjectID, req ride.UpdateRideRequest) (*ride.Ride, error) {
	return nil, nil
}
func (m *mockRideRepo) ListByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]ride.Ride, int64, error) {
	args := m.Called(ctx, driverID, page, limit)
	var out []ride.Ride
	if args.Get(0) != nil {
		out = args.Get(0).([]ride.Ride)
	}
	return out, int64(len(out)), args.Error(1)
}
func (m *mockRideRepo) TryReserve(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error) {
	return false, nil
}
func (m *mockRideRepo) Release(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) error {
	return nil
}
func (m *mockRideRepo) Freeze(ctx context.Context, rideID primitive.ObjectID) error { return nil }
func (m *mockRideRepo) Complete(ctx context.Context, rideID primitive.ObjectID) error {
	args := m.Called(ctx, rideID)
	return args.Error(0)
}
func (m *mockRideRepo) SweepDepartedActive(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}
func (m *mockRideRepo) Search(ctx context.Context, f ride.SearchFilter, page, limit int) ([]ride.Summary, int64, error) {
	return nil, 0, nil
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) ApplyRating(ctx context.Context, id primitive.ObjectID, stars int) error {
	args := m.Called(ctx, id, stars)
	return args.Error(0)
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	return nil, nil
}
func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) UpdateConnectedAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	return nil
}
func (m *mockUserRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return nil
}

type mockBus struct{ mock.Mock }

func (m *mockBus) Emit(ctx context.Context, userID primitive.ObjectID, kind notification.Kind, payload bson.M) (*notification.Notification, error) {
	m.Called(ctx, userID, kind, payload)
	return nil, nil
}
func (m *mockBus) EmitOnceForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind notification.Kind, payload bson.M) (*notification.Notification, error) {
	args := m.Called(ctx, userID, bookingID, kind, payload)
	return nil, args.Error(0)
}
func (m *mockBus) List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}
func (m *mockBus) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error { return nil }

func TestCanRate_FalseBeforeWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFixed(now)
	bookingID, rideID, passengerID, driverID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	bookings := &mockBookingRepo{}
	bookings.On("FindByID", mock.Anything, bookingID).Return(&booking.Booking{
		ID: bookingID, RideID: rideID, PassengerID: passengerID, Status: booking.StatusAccepted,
	}, nil)
	rides := &mockRideRepo{}
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{
		ID: rideID, DriverID: driverID, DepartureAt: now.Add(-10 * time.Minute),
	}, nil)
	repo := &mockRatingRepo{}
	repo.On("ExistsForBooking", mock.Anything, bookingID, passengerID).Return(false, nil)

	svc := NewService(repo, bookings, rides, &mockUserRepo{}, &mockBus{}, c)
	canRate, err := svc.CanRate(context.Background(), bookingID, passengerID)
	require.NoError(t, err)
	assert.False(t, canRate)
}

func TestCanRate_TrueAfterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFixed(now)
	bookingID, rideID, passengerID, driverID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	bookings := &mockBookingRepo{}
	bookings.On("FindByID", mock.Anything, bookingID).Return(&booking.Booking{
		ID: bookingID, RideID: rideID, PassengerID: passengerID, Status: booking.StatusAccepted,
	}, nil)
	rides := &mockRideRepo{}
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{
		ID: rideID, DriverID: driverID, DepartureAt: now.Add(-31 * time.Minute),
	}, nil)
	repo := &mockRatingRepo{}
	repo.On("ExistsForBooking", mock.Anything, bookingID, driverID).Return(false, nil)

	svc := NewService(repo, bookings, rides, &mockUserRepo{}, &mockBus{}, c)
	canRate, err := svc.CanRate(context.Background(), bookingID, driverID)
	require.NoError(t, err)
	assert.True(t, canRate)
}

func TestCreate_RejectsNonParticipant(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFixed(now)
	bookingID, rideID := primitive.NewObjectID(), primitive.NewObjectID()

	bookings := &mockBookingRepo{}
	bookings.On("FindByID", mock.Anything, bookingID).Return(&booking.Booking{
		ID: bookingID, RideID: rideID, PassengerID: primitive.NewObjectID(), Status: booking.StatusAccepted,
	}, nil)
	rides := &mockRideRepo{}
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{
		ID: rideID, DriverID: primitive.NewObjectID(), DepartureAt: now.Add(-time.Hour),
	}, nil)

	svc := NewService(&mockRatingRepo{}, bookings, rides, &mockUserRepo{}, &mockBus{}, c)
	_, err := svc.Create(context.Background(), primitive.NewObjectID(), CreateRatingRequest{
		BookingID: bookingID.Hex(), Stars: 5,
	})
	require.Error(t, err)
}

func TestScheduler_Tick_PromptsAndCompletes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFixed(now)
	rideID, bookingID, passengerID, driverID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	rides := &mockRideRepo{}
	rides.On("SweepDepartedActive", mock.Anything, mock.Anything).Return([]primitive.ObjectID{rideID}, nil)
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{ID: rideID, DriverID: driverID}, nil)
	rides.On("Complete", mock.Anything, rideID).Return(nil)

	bookings := &mockBookingRepo{}
	bookings.On("ListByRide", mock.Anything, rideID, 1, 500).Return([]booking.Booking{
		{ID: bookingID, RideID: rideID, PassengerID: passengerID, Status: booking.StatusAccepted},
	}, int64(1), nil)

	repo := &mockRatingRepo{}
	repo.On("ExistsForBooking", mock.Anything, bookingID, passengerID).Return(false, nil)
	repo.On("ExistsForBooking", mock.Anything, bookingID, driverID).Return(false, nil)

	bus := &mockBus{}
	bus.On("EmitOnceForBooking", mock.Anything, passengerID, bookingID, notification.KindRateDriver, mock.Anything).Return(nil)
	bus.On("EmitOnceForBooking", mock.Anything, driverID, bookingID, notification.KindRatePassenger, mock.Anything).Return(nil)

	sched := NewScheduler(rides, bookings, repo, bus, c)
	require.NoError(t, sched.Tick(context.Background()))
	rides.AssertCalled(t, "Complete", mock.Anything, rideID)
	bus.AssertExpectations(t)
}
