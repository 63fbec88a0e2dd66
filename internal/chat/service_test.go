package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/booking"
	"airpool/internal/request"
	"airpool/internal/ride"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Create(ctx context.Context, msg *Message) (*Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}
func (m *mockRepo) ListByThread(ctx context.Context, kind ThreadKind, threadID primitive.ObjectID, page, limit int) ([]Message, int64, error) {
	args := m.Called(ctx, kind, threadID, page, limit)
	var out []Message
	if args.Get(0) != nil {
		out = args.Get(0).([]Message)
	}
	return out, int64(len(out)), args.Error(1)
}

type mockRides struct{ mock.Mock }

func (m *mockRides) Create(ctx context.Context, r *ride.Ride) (*ride.Ride, error) { return nil, nil }
func (m *mockRides) FindByID(ctx context.Context, id primitive.ObjectID) (*ride.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ride.Ride), args.Error(1)
}
func (m *mockRides) Update(ctx context.Context, id, driverID primitive.ObjectID, req ride.UpdateRideRequest) (*ride.Ride, error) {
	return nil, nil
}
func (m *mockRides) ListByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]ride.Ride, int64, error) {
	return nil, 0, nil
}
func (m *mockRides) TryReserve(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error) {
	return false, nil
}
func (m *mockRides) Release(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) error {
	return nil
}
func (m *mockRides) Freeze(ctx context.Context, rideID primitive.ObjectID) error { return nil }
func (m *mockRides) Complete(ctx context.Context, rideID primitive.ObjectID) error {
	return nil
}
func (m *mockRides) SweepDepartedActive(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	return nil, nil
}
func (m *mockRides) Search(ctx context.Context, f ride.SearchFilter, page, limit int) ([]ride.Summary, int64, error) {
	return nil, 0, nil
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookings) FindByID(ctx context.Context, id primitive.ObjectID) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookings) FindByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*booking.Booking, error) {
	args := m.Called(ctx, rideID, passengerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}
func (m *mockBookings) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]booking.Booking, int64, error) {
	return nil, 0, nil
}
func (m *mockBookings) ListByRide(ctx context.Context, rideID primitive.ObjectID, page, limit int) ([]booking.Booking, int64, error) {
	return nil, 0, nil
}
func (m *mockBookings) FindByPSPIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookings) Transition(ctx context.Context, id primitive.ObjectID, from, to booking.Status) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookings) UpdateSeats(ctx context.Context, id, passengerID primitive.ObjectID, seats, luggage int) (*booking.Booking, error) {
	return nil, nil
}
func (m *mockBookings) SetPaid(ctx context.Context, id primitive.ObjectID, method booking.PaymentMethod, pspIntentID string, grossAmount int64) error {
	return nil
}
func (m *mockBookings) SetPaymentFailed(ctx context.Context, id primitive.ObjectID) error {
	return nil
}
func (m *mockBookings) SetRefunded(ctx context.Context, id primitive.ObjectID, refundID string, reason booking.RefundReason) error {
	return nil
}

type mockRequests struct{ mock.Mock }

func (m *mockRequests) CreateRequest(ctx context.Context, r *request.RideRequest) (*request.RideRequest, error) {
	return nil, nil
}
func (m *mockRequests) FindByID(ctx context.Context, id primitive.ObjectID) (*request.RideRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*request.RideRequest), args.Error(1)
}
func (m *mockRequests) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]request.RideRequest, int64, error) {
	return nil, 0, nil
}
func (m *mockRequests) TransitionRequest(ctx context.Context, id primitive.ObjectID, from, to request.Status) (*request.RideRequest, error) {
	return nil, nil
}
func (m *mockRequests) SweepExpirable(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	return nil, nil
}
func (m *mockRequests) ExpireOne(ctx context.Context, id primitive.ObjectID) error { return nil }
func (m *mockRequests) Search(ctx context.Context, f request.SearchFilter, requestingDriverID primitive.ObjectID, page, limit int) ([]request.Summary, int64, error) {
	return nil, 0, nil
}
func (m *mockRequests) CreateOffer(ctx context.Context, o *request.Offer) (*request.Offer, error) {
	return nil, nil
}
func (m *mockRequests) FindOfferByID(ctx context.Context, id primitive.ObjectID) (*request.Offer, error) {
	return nil, nil
}
func (m *mockRequests) ListOffersByRequest(ctx context.Context, requestID primitive.ObjectID) ([]request.Offer, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]request.Offer), args.Error(1)
}
func (m *mockRequests) ListOffersByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]request.Offer, int64, error) {
	return nil, 0, nil
}
func (m *mockRequests) WithdrawOffer(ctx context.Context, offerID, driverID primitive.ObjectID) error {
	return nil
}
func (m *mockRequests) RejectOffer(ctx context.Context, offerID primitive.ObjectID) error {
	return nil
}
func (m *mockRequests) AcceptOfferAtomic(ctx context.Context, chosen *request.Offer, driverID, rideID primitive.ObjectID, amountGross int64) (*request.RideRequest, []request.Offer, error) {
	return nil, nil, nil
}

func TestSend_RejectsNonParticipantOnRide(t *testing.T) {
	rideID, userID, driverID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	rides := &mockRides{}
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{ID: rideID, DriverID: driverID}, nil)
	bookings := &mockBookings{}
	bookings.On("FindByRideAndPassenger", mock.Anything, rideID, userID).Return(nil, booking.ErrNotFound)

	svc := NewService(&mockRepo{}, rides, bookings, &mockRequests{})
	_, err := svc.Send(context.Background(), ThreadRide, rideID, userID, SendMessageRequest{Body: "hi"})
	require.Error(t, err)
}

func TestSend_AllowsRideDriver(t *testing.T) {
	rideID, driverID := primitive.NewObjectID(), primitive.NewObjectID()

	rides := &mockRides{}
	rides.On("FindByID", mock.Anything, rideID).Return(&ride.Ride{ID: rideID, DriverID: driverID}, nil)

	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(&Message{ID: primitive.NewObjectID()}, nil)

	svc := NewService(repo, rides, &mockBookings{}, &mockRequests{})
	_, err := svc.Send(context.Background(), ThreadRide, rideID, driverID, SendMessageRequest{Body: "on my way"})
	require.NoError(t, err)
}

func TestSend_AllowsOfferingDriverOnRequest(t *testing.T) {
	requestID, passengerID, driverID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	requests := &mockRequests{}
	requests.On("FindByID", mock.Anything, requestID).Return(&request.RideRequest{ID: requestID, PassengerID: passengerID}, nil)
	requests.On("ListOffersByRequest", mock.Anything, requestID).Return([]request.Offer{{DriverID: driverID}}, nil)

	repo := &mockRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(&Message{ID: primitive.NewObjectID()}, nil)

	svc := NewService(repo, &mockRides{}, &mockBookings{}, requests)
	_, err := svc.Send(context.Background(), ThreadRequest, requestID, driverID, SendMessageRequest{Body: "can pick up at 6"})
	require.NoError(t, err)
}
