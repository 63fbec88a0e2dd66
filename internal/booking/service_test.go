package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/clock"
	"airpool/internal/notification"
	"airpool/internal/payment"
	"airpool/internal/ride"
	"airpool/internal/user"
	"airpool/internal/wallet"
)

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) FindByRideAndPassenger(ctx context.Context, rideID, passengerID primitive.ObjectID) (*Booking, error) {
	args := m.Called(ctx, rideID, passengerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) ListByPassenger(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	args := m.Called(ctx, passengerID, page, limit)
	var out []Booking
	if args.Get(0) != nil {
		out = args.Get(0).([]Booking)
	}
	return out, args.Get(1).(int64), args.Error(2)
}
func (m *MockRepository) ListByRide(ctx context.Context, rideID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	args := m.Called(ctx, rideID, page, limit)
	var out []Booking
	if args.Get(0) != nil {
		out = args.Get(0).([]Booking)
	}
	return out, args.Get(1).(int64), args.Error(2)
}
func (m *MockRepository) FindByPSPIntentID(ctx context.Context, intentID string) (*Booking, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) Transition(ctx context.Context, id primitive.ObjectID, from, to Status) (*Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) UpdateSeats(ctx context.Context, id, passengerID primitive.ObjectID, seats, luggage int) (*Booking, error) {
	args := m.Called(ctx, id, passengerID, seats, luggage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}
func (m *MockRepository) SetPaid(ctx context.Context, id primitive.ObjectID, method PaymentMethod, pspIntentID string, grossAmount int64) error {
	args := m.Called(ctx, id, method, pspIntentID, grossAmount)
	return args.Error(0)
}
func (m *MockRepository) SetPaymentFailed(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRepository) SetRefunded(ctx context.Context, id primitive.ObjectID, refundID string, reason RefundReason) error {
	args := m.Called(ctx, id, refundID, reason)
	return args.Error(0)
}

type MockRideRepo struct{ mock.Mock }

func (m *MockRideRepo) Create(ctx context.Context, r *ride.Ride) (*ride.Ride, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ride.Ride), args.Error(1)
}
func (m *MockRideRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*ride.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ride.Ride), args.Error(1)
}
func (m *MockRideRepo) Update(ctx context.Context, id, driverID primitive.ObjectID, req ride.UpdateRideRequest) (*ride.Ride, error) {
	args := m.Called(ctx, id, driverID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ride.Ride), args.Error(1)
}
func (m *MockRideRepo) ListByDriver(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]ride.Ride, int64, error) {
	args := m.Called(ctx, driverID, page, limit)
	var out []ride.Ride
	if args.Get(0) != nil {
		out = args.Get(0).([]ride.Ride)
	}
	return out, args.Get(1).(int64), args.Error(2)
}
func (m *MockRideRepo) TryReserve(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error) {
	args := m.Called(ctx, rideID, seats, luggage)
	return args.Bool(0), args.Error(1)
}
func (m *MockRideRepo) Release(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) error {
	args := m.Called(ctx, rideID, seats, luggage)
	return args.Error(0)
}
func (m *MockRideRepo) Freeze(ctx context.Context, rideID primitive.ObjectID) error {
	args := m.Called(ctx, rideID)
	return args.Error(0)
}
func (m *MockRideRepo) Complete(ctx context.Context, rideID primitive.ObjectID) error {
	args := m.Called(ctx, rideID)
	return args.Error(0)
}
func (m *MockRideRepo) SweepDepartedActive(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}
func (m *MockRideRepo) Search(ctx context.Context, f ride.SearchFilter, page, limit int) ([]ride.Summary, int64, error) {
	args := m.Called(ctx, f, page, limit)
	var out []ride.Summary
	if args.Get(0) != nil {
		out = args.Get(0).([]ride.Summary)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
func (m *MockUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}
func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserRepo) UpdateConnectedAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	args := m.Called(ctx, id, accountID)
	return args.Error(0)
}
func (m *MockUserRepo) ApplyRating(ctx context.Context, id primitive.ObjectID, stars int) error {
	args := m.Called(ctx, id, stars)
	return args.Error(0)
}
func (m *MockUserRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockWalletService struct{ mock.Mock }

func (m *MockWalletService) GetWallet(ctx context.Context, userID primitive.ObjectID) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}
func (m *MockWalletService) ListTransactions(ctx context.Context, userID primitive.ObjectID, filter wallet.TransactionFilter, page, limit int) ([]wallet.Transaction, int64, error) {
	args := m.Called(ctx, userID, filter, page, limit)
	var out []wallet.Transaction
	if args.Get(0) != nil {
		out = args.Get(0).([]wallet.Transaction)
	}
	return out, args.Get(1).(int64), args.Error(2)
}
func (m *MockWalletService) Credit(ctx context.Context, userID primitive.ObjectID, kind wallet.TransactionKind, amount int64, ref wallet.ReferenceKind, refID primitive.ObjectID, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, userID, kind, amount, ref, refID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) Debit(ctx context.Context, userID primitive.ObjectID, kind wallet.TransactionKind, amount int64, ref wallet.ReferenceKind, refID primitive.ObjectID, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, userID, kind, amount, ref, refID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) ReserveWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, userID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) SettleWithdrawal(ctx context.Context, txID primitive.ObjectID, pspPayoutID string) (*wallet.Transaction, error) {
	args := m.Called(ctx, txID, pspPayoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) FailWithdrawal(ctx context.Context, txID primitive.ObjectID) (*wallet.Transaction, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) FeePolicy() int {
	args := m.Called()
	return args.Int(0)
}
func (m *MockWalletService) HasSettledIntent(ctx context.Context, pspIntentID string) (bool, error) {
	return false, nil
}
func (m *MockWalletService) CreditForIntent(ctx context.Context, userID primitive.ObjectID, kind wallet.TransactionKind, amount int64, ref wallet.ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*wallet.Transaction, error) {
	return nil, nil
}
func (m *MockWalletService) CreditEarning(ctx context.Context, driverID primitive.ObjectID, fee wallet.FeeBreakdown, ref wallet.ReferenceKind, refID primitive.ObjectID, description string) (*wallet.Transaction, error) {
	args := m.Called(ctx, driverID, fee, ref, refID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}
func (m *MockWalletService) CreditEarningForIntent(ctx context.Context, driverID primitive.ObjectID, fee wallet.FeeBreakdown, ref wallet.ReferenceKind, refID primitive.ObjectID, pspIntentID, description string) (*wallet.Transaction, error) {
	return nil, nil
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}
func (m *MockGateway) RetrieveIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}
func (m *MockGateway) RefundIntent(ctx context.Context, params payment.RefundParams) (*payment.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}
func (m *MockGateway) CreateConnectedAccount(ctx context.Context, email string) (*payment.ConnectedAccount, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ConnectedAccount), args.Error(1)
}
func (m *MockGateway) RetrieveConnectedAccount(ctx context.Context, accountID string) (*payment.ConnectedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ConnectedAccount), args.Error(1)
}
func (m *MockGateway) CreateTransfer(ctx context.Context, amount int64, currency, destinationAccountID, description string) (*payment.Transfer, error) {
	args := m.Called(ctx, amount, currency, destinationAccountID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transfer), args.Error(1)
}
func (m *MockGateway) CreatePayout(ctx context.Context, amount int64, currency, accountID string) (*payment.Payout, error) {
	args := m.Called(ctx, amount, currency, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payout), args.Error(1)
}
func (m *MockGateway) VerifyWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

type MockBus struct{ mock.Mock }

func (m *MockBus) Emit(ctx context.Context, userID primitive.ObjectID, kind notification.Kind, payload bson.M) (*notification.Notification, error) {
	args := m.Called(ctx, userID, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}
func (m *MockBus) EmitOnceForBooking(ctx context.Context, userID, bookingID primitive.ObjectID, kind notification.Kind, payload bson.M) (*notification.Notification, error) {
	args := m.Called(ctx, userID, bookingID, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}
func (m *MockBus) List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]notification.Notification, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	var out []notification.Notification
	if args.Get(0) != nil {
		out = args.Get(0).([]notification.Notification)
	}
	return out, args.Get(1).(int64), args.Error(2)
}
func (m *MockBus) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func newTestService() (*service, *MockRepository, *MockRideRepo, *MockUserRepo, *MockWalletService, *MockGateway, *MockBus, *clock.Fixed) {
	repo := new(MockRepository)
	rides := new(MockRideRepo)
	users := new(MockUserRepo)
	wallets := new(MockWalletService)
	gateway := new(MockGateway)
	bus := new(MockBus)
	c := clock.NewFixed(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	bus.On("Emit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&notification.Notification{}, nil).Maybe()
	svc := NewService(repo, rides, users, wallets, gateway, bus, c).(*service)
	return svc, repo, rides, users, wallets, gateway, bus, c
}

func activeRide(driverID primitive.ObjectID, departure time.Time) *ride.Ride {
	return &ride.Ride{
		ID: primitive.NewObjectID(), DriverID: driverID, Status: ride.StatusActive,
		SeatsLeft: 3, LuggageLeft: 3, PricePerSeat: 1000, DepartureAt: departure,
	}
}

func TestCreateBooking_RejectsDriverBookingOwnRide(t *testing.T) {
	svc, _, rides, _, _, _, _, c := newTestService()
	driverID := primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, err := svc.CreateBooking(context.Background(), driverID, r.ID, CreateBookingRequest{Seats: 1})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
}

func TestCreateBooking_RejectsInsufficientCapacity(t *testing.T) {
	svc, _, rides, _, _, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	r.SeatsLeft = 1
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, err := svc.CreateBooking(context.Background(), passengerID, r.ID, CreateBookingRequest{Seats: 2})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindCapacity, ae.Kind)
}

func TestCreateBooking_Success(t *testing.T) {
	svc, repo, rides, _, _, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(b *Booking) bool {
		return b.Status == StatusPending && b.PaymentStatus == PaymentUnpaid
	})).Return(&Booking{ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: passengerID, Status: StatusPending}, nil)

	b, err := svc.CreateBooking(context.Background(), passengerID, r.ID, CreateBookingRequest{Seats: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
}

func TestPayAndBookWithWallet_ReleasesCapacityWhenDebitFails(t *testing.T) {
	svc, _, rides, _, wallets, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	rides.On("TryReserve", mock.Anything, r.ID, 1, 0).Return(true, nil)
	rides.On("Release", mock.Anything, r.ID, 1, 0).Return(nil)
	wallets.On("Debit", mock.Anything, passengerID, wallet.KindRidePayment, r.PricePerSeat, wallet.ReferenceRide, r.ID, mock.Anything).
		Return(nil, apperr.Capacity("insufficient wallet balance"))

	_, err := svc.PayAndBookWithWallet(context.Background(), passengerID, r.ID, CreateBookingRequest{Seats: 1})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindCapacity, ae.Kind)
	rides.AssertCalled(t, "Release", mock.Anything, r.ID, 1, 0)
}

func TestPayAndBookWithWallet_Success(t *testing.T) {
	svc, repo, rides, _, wallets, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	rides.On("TryReserve", mock.Anything, r.ID, 1, 0).Return(true, nil)
	wallets.On("Debit", mock.Anything, passengerID, wallet.KindRidePayment, r.PricePerSeat, wallet.ReferenceRide, r.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	wallets.On("FeePolicy").Return(10)
	wallets.On("CreditEarning", mock.Anything, driverID, mock.Anything, wallet.ReferenceBooking, mock.Anything, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(b *Booking) bool {
		return b.Status == StatusAccepted && b.PaymentStatus == PaymentPaid && b.PaymentMethod == MethodWallet
	})).Return(&Booking{ID: primitive.NewObjectID(), Status: StatusAccepted}, nil)

	b, err := svc.PayAndBookWithWallet(context.Background(), passengerID, r.ID, CreateBookingRequest{Seats: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, b.Status)
	wallets.AssertExpectations(t)
}

func TestTransition_AcceptRequiresDriver(t *testing.T) {
	svc, repo, rides, _, _, _, _, c := newTestService()
	driverID, passengerID, otherID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	b := &Booking{ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: passengerID, Status: StatusPending}
	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, _, err := svc.Transition(context.Background(), b.ID, otherID, StatusAccepted)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindPermission, ae.Kind)
}

func TestTransition_AcceptedCancelBlockedInsideCutoff(t *testing.T) {
	svc, repo, rides, _, _, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(2*time.Hour)) // inside the 24h cutoff
	b := &Booking{ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: passengerID, Status: StatusAccepted, Seats: 1}
	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, _, err := svc.Transition(context.Background(), b.ID, passengerID, StatusCancelled)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindState, ae.Kind)
}

func TestTransition_AcceptedCancelRefundsWalletBooking(t *testing.T) {
	svc, repo, rides, _, wallets, _, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	b := &Booking{
		ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: passengerID, Status: StatusAccepted,
		Seats: 1, PaymentStatus: PaymentPaid, PaymentMethod: MethodWallet, AmountGross: 1000,
	}
	cancelled := *b
	cancelled.Status = StatusCancelled

	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Transition", mock.Anything, b.ID, StatusAccepted, StatusCancelled).Return(&cancelled, nil)
	rides.On("Release", mock.Anything, r.ID, 1, 0).Return(nil)
	wallets.On("FeePolicy").Return(10)
	wallets.On("Credit", mock.Anything, passengerID, wallet.KindRefund, int64(1000), wallet.ReferenceBooking, b.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	wallets.On("Debit", mock.Anything, driverID, wallet.KindRefund, mock.Anything, wallet.ReferenceBooking, b.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	repo.On("SetRefunded", mock.Anything, b.ID, mock.Anything, RefundPassengerCancelled).Return(nil)

	updated, warning, err := svc.Transition(context.Background(), b.ID, passengerID, StatusCancelled)
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, StatusCancelled, updated.Status)
	wallets.AssertExpectations(t)
}

func TestTransition_AcceptedCancelRefundsCardBooking(t *testing.T) {
	svc, repo, rides, _, wallets, gateway, _, c := newTestService()
	driverID, passengerID := primitive.NewObjectID(), primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	b := &Booking{
		ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: passengerID, Status: StatusAccepted,
		Seats: 1, PaymentStatus: PaymentPaid, PaymentMethod: MethodCard, AmountGross: 4000,
		PSPIntentID: "pi_card_1",
	}
	cancelled := *b
	cancelled.Status = StatusCancelled

	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Transition", mock.Anything, b.ID, StatusAccepted, StatusCancelled).Return(&cancelled, nil)
	rides.On("Release", mock.Anything, r.ID, 1, 0).Return(nil)
	wallets.On("FeePolicy").Return(10)
	gateway.On("RetrieveIntent", mock.Anything, "pi_card_1").
		Return(&payment.Intent{ID: "pi_card_1"}, nil)
	gateway.On("RefundIntent", mock.Anything, payment.RefundParams{IntentID: "pi_card_1"}).
		Return(&payment.Refund{ID: "re_1"}, nil)
	wallets.On("Credit", mock.Anything, passengerID, wallet.KindRefund, int64(4000), wallet.ReferenceBooking, b.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	wallets.On("Debit", mock.Anything, driverID, wallet.KindRefund, int64(3600), wallet.ReferenceBooking, b.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	repo.On("SetRefunded", mock.Anything, b.ID, "re_1", RefundPassengerCancelled).Return(nil)

	updated, warning, err := svc.Transition(context.Background(), b.ID, passengerID, StatusCancelled)
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, StatusCancelled, updated.Status)
	wallets.AssertCalled(t, "Credit", mock.Anything, passengerID, wallet.KindRefund, int64(4000), wallet.ReferenceBooking, b.ID, mock.Anything)
	wallets.AssertExpectations(t)
}

func TestCancelRide_BlockedInsideCutoff(t *testing.T) {
	svc, _, rides, _, _, _, _, c := newTestService()
	driverID := primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(3*time.Hour)) // inside the 12h cutoff
	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, _, err := svc.CancelRide(context.Background(), r.ID, driverID)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindState, ae.Kind)
}

func TestCancelRide_CascadesOverBookings(t *testing.T) {
	svc, repo, rides, _, wallets, _, _, c := newTestService()
	driverID := primitive.NewObjectID()
	r := activeRide(driverID, c.Now().Add(48*time.Hour))
	pending := Booking{ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: primitive.NewObjectID(), Status: StatusPending}
	accepted := Booking{
		ID: primitive.NewObjectID(), RideID: r.ID, PassengerID: primitive.NewObjectID(), Status: StatusAccepted,
		Seats: 1, PaymentStatus: PaymentPaid, PaymentMethod: MethodWallet, AmountGross: 500,
	}
	cancelledAccepted := accepted
	cancelledAccepted.Status = StatusCancelled

	rides.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	rides.On("Freeze", mock.Anything, r.ID).Return(nil)
	repo.On("ListByRide", mock.Anything, r.ID, 1, 1000).Return([]Booking{pending, accepted}, int64(2), nil)
	repo.On("Transition", mock.Anything, pending.ID, StatusPending, StatusCancelled).Return(&pending, nil)
	repo.On("Transition", mock.Anything, accepted.ID, StatusAccepted, StatusCancelled).Return(&cancelledAccepted, nil)
	rides.On("Release", mock.Anything, r.ID, 1, 0).Return(nil)
	wallets.On("FeePolicy").Return(10)
	wallets.On("Credit", mock.Anything, accepted.PassengerID, wallet.KindRefund, int64(500), wallet.ReferenceBooking, accepted.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	wallets.On("Debit", mock.Anything, driverID, wallet.KindRefund, mock.Anything, wallet.ReferenceBooking, accepted.ID, mock.Anything).
		Return(&wallet.Transaction{}, nil)
	repo.On("SetRefunded", mock.Anything, accepted.ID, mock.Anything, RefundRideCancelled).Return(nil)

	count, warning, err := svc.CancelRide(context.Background(), r.ID, driverID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, warning)
}
