package booking

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/clock"
	"airpool/internal/logger"
	"airpool/internal/metrics"
	"airpool/internal/notification"
	"airpool/internal/payment"
	"airpool/internal/ride"
	"airpool/internal/user"
	"airpool/internal/wallet"
)

const currency = "usd"
const cancellationCutoffHours = 24 // a passenger may cancel an accepted booking up to this long before departure
const rideCancelCutoffHours = 12   // a driver may cancel the whole ride up to this long before departure

// Service is spec.md §4.5's BookingEngine. Every operation that spans
// ride capacity, the wallet ledger and the PSP is written as an
// ordered sequence with compensating undo rather than a single
// cross-collection Mongo transaction, since ride/wallet/booking are
// separate repositories each already atomic at their own document.
type Service interface {
	CreateBooking(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*Booking, error)
	PayAndBookWithCard(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*payment.Intent, error)
	CompletePayment(ctx context.Context, passengerID primitive.ObjectID, intentID string) (*Booking, error)
	PayAndBookWithWallet(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*Booking, error)
	UpdateSeats(ctx context.Context, bookingID, passengerID primitive.ObjectID, seats, luggage int) (*Booking, error)
	Transition(ctx context.Context, bookingID, actorID primitive.ObjectID, to Status) (*Booking, string, error)
	CancelRide(ctx context.Context, rideID, driverID primitive.ObjectID) (int, string, error)
	Get(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	MyBookings(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]Booking, int64, error)
	ListByRide(ctx context.Context, rideID, driverID primitive.ObjectID, page, limit int) ([]Booking, int64, error)
}

type service struct {
	repo     Repository
	rides    ride.Repository
	users    user.Repository
	wallets  wallet.Service
	gateway  payment.Gateway
	notifier notification.Bus
	clock    clock.Clock
}

func NewService(repo Repository, rides ride.Repository, users user.Repository, wallets wallet.Service, gateway payment.Gateway, notifier notification.Bus, c clock.Clock) Service {
	return &service{repo: repo, rides: rides, users: users, wallets: wallets, gateway: gateway, notifier: notifier, clock: c}
}

func (s *service) loadActiveRide(ctx context.Context, rideID primitive.ObjectID) (*ride.Ride, error) {
	r, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return nil, apperr.NotFound("ride not found")
	}
	if r.Status != ride.StatusActive {
		return nil, apperr.State("ride is not accepting bookings")
	}
	return r, nil
}

func (s *service) validateSeats(r *ride.Ride, req CreateBookingRequest) error {
	if req.Seats < 1 {
		return apperr.Validation("seats must be at least 1")
	}
	if req.Seats > r.SeatsLeft || req.Luggage > r.LuggageLeft {
		return apperr.Capacity("not enough seats or luggage space left on this ride")
	}
	return nil
}

func (s *service) emit(ctx context.Context, userID primitive.ObjectID, kind notification.Kind, payload bson.M) {
	if _, err := s.notifier.Emit(ctx, userID, kind, payload); err != nil {
		logger.Error("failed to emit notification", "kind", kind, "err", err)
	}
}

// CreateBooking is the request-to-ride path: a pending, unpaid claim
// the driver later accepts or rejects. It reserves nothing, per
// spec.md §4.5 — capacity is only ever touched on acceptance.
func (s *service) CreateBooking(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*Booking, error) {
	r, err := s.loadActiveRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == passengerID {
		return nil, apperr.Validation("a driver cannot book their own ride")
	}
	if err := s.validateSeats(r, req); err != nil {
		return nil, err
	}

	b := &Booking{
		RideID: rideID, PassengerID: passengerID,
		Seats: req.Seats, Luggage: req.Luggage,
		Pickup: req.Pickup, Dropoff: req.Dropoff,
		Status: StatusPending, PaymentStatus: PaymentUnpaid, PaymentMethod: MethodNone,
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		if err == ErrDuplicate {
			return nil, apperr.Conflict("you already have a booking on this ride")
		}
		return nil, apperr.Transient("failed to create booking", err)
	}

	s.emit(ctx, r.DriverID, notification.KindBookingRequest, notification.BookingRequestPayload(rideID, created.ID, req.Seats))
	metrics.RecordBooking("pending", "none")
	return created, nil
}

// PayAndBookWithCard opens a Stripe PaymentIntent for the ride's price
// and hands the client secret back; the booking itself only comes into
// being once CompletePayment confirms the charge succeeded.
func (s *service) PayAndBookWithCard(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*payment.Intent, error) {
	r, err := s.loadActiveRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == passengerID {
		return nil, apperr.Validation("a driver cannot book their own ride")
	}
	if err := s.validateSeats(r, req); err != nil {
		return nil, err
	}

	amount := r.PricePerSeat * int64(req.Seats)
	params := payment.CreateIntentParams{
		Amount:   amount,
		Currency: currency,
		Metadata: map[string]string{
			"rideId":      rideID.Hex(),
			"passengerId": passengerID.Hex(),
			"seats":       fmt.Sprintf("%d", req.Seats),
			"luggage":     fmt.Sprintf("%d", req.Luggage),
		},
	}

	if driver, err := s.users.FindByID(ctx, r.DriverID); err == nil && driver.ConnectedPayoutAccountID != "" {
		fee := wallet.ApplyFee(amount, s.wallets.FeePolicy())
		params.DestinationAccountID = driver.ConnectedPayoutAccountID
		params.ApplicationFeeAmount = fee.Fee
	}

	intent, err := s.gateway.CreateIntent(ctx, params)
	if err != nil {
		return nil, apperr.Payment("failed to start card payment")
	}
	return intent, nil
}

// CompletePayment is called once the client has confirmed the
// PaymentIntent. It re-validates capacity — a card confirmation can
// take minutes, long enough for seats to disappear — before creating
// the Booking already accepted+paid. Crediting the driver's earning
// happens off the paymentIntent.succeeded webhook (internal/webhook),
// so it stays correct even if this call never returns after Stripe has
// already confirmed the charge.
func (s *service) CompletePayment(ctx context.Context, passengerID primitive.ObjectID, intentID string) (*Booking, error) {
	if existing, err := s.repo.FindByPSPIntentID(ctx, intentID); err == nil {
		return existing, nil // already completed by a retried call
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, apperr.Payment("failed to retrieve payment")
	}
	if intent.Status != "succeeded" {
		return nil, apperr.Payment("payment has not succeeded")
	}

	rideID, err := primitive.ObjectIDFromHex(intent.Metadata["rideId"])
	if err != nil {
		return nil, apperr.State("payment intent is missing booking metadata")
	}
	metaPassenger, err := primitive.ObjectIDFromHex(intent.Metadata["passengerId"])
	if err != nil || metaPassenger != passengerID {
		return nil, apperr.Permission("payment intent does not belong to this passenger")
	}
	var seats, luggage int
	fmt.Sscanf(intent.Metadata["seats"], "%d", &seats)
	fmt.Sscanf(intent.Metadata["luggage"], "%d", &luggage)

	ok, err := s.rides.TryReserve(ctx, rideID, seats, luggage)
	if err != nil {
		return nil, apperr.Transient("failed to reserve capacity", err)
	}
	if !ok {
		s.refundFailedIntent(ctx, intent)
		return nil, apperr.Capacity("seats are no longer available; payment has been refunded")
	}

	b := &Booking{
		RideID: rideID, PassengerID: passengerID, Seats: seats, Luggage: luggage,
		Status: StatusAccepted, PaymentStatus: PaymentPaid, PaymentMethod: MethodCard,
		PSPIntentID: intentID, AmountGross: intent.Amount,
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		_ = s.rides.Release(ctx, rideID, seats, luggage)
		s.refundFailedIntent(ctx, intent)
		if err == ErrDuplicate {
			return nil, apperr.Conflict("you already have a booking on this ride; payment has been refunded")
		}
		return nil, apperr.Transient("failed to create booking; payment has been refunded", err)
	}

	if r, err := s.rides.FindByID(ctx, rideID); err == nil {
		s.emit(ctx, r.DriverID, notification.KindBookingAccepted, notification.BookingStatusPayload(rideID, created.ID, "accepted"))
	}
	metrics.RecordBooking("accepted", "card")
	return created, nil
}

func (s *service) refundFailedIntent(ctx context.Context, intent *payment.Intent) {
	reverse := intent.DestinationAccountID != ""
	if _, err := s.gateway.RefundIntent(ctx, payment.RefundParams{
		IntentID: intent.ID, ReverseTransfer: reverse, RefundApplicationFee: reverse,
	}); err != nil {
		logger.Error("failed to refund a payment intent that could not be turned into a booking", "intentId", intent.ID, "err", err)
	}
}

// PayAndBookWithWallet debits the passenger's wallet, reserves
// capacity and creates the accepted+paid booking as an ordered
// sequence with compensating undo: any failure after the debit
// credits the passenger straight back.
func (s *service) PayAndBookWithWallet(ctx context.Context, passengerID, rideID primitive.ObjectID, req CreateBookingRequest) (*Booking, error) {
	r, err := s.loadActiveRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == passengerID {
		return nil, apperr.Validation("a driver cannot book their own ride")
	}
	if err := s.validateSeats(r, req); err != nil {
		return nil, err
	}

	amount := r.PricePerSeat * int64(req.Seats)

	ok, err := s.rides.TryReserve(ctx, rideID, req.Seats, req.Luggage)
	if err != nil {
		return nil, apperr.Transient("failed to reserve capacity", err)
	}
	if !ok {
		return nil, apperr.Capacity("not enough seats or luggage space left on this ride")
	}

	if amount > 0 {
		if _, err := s.wallets.Debit(ctx, passengerID, wallet.KindRidePayment, amount, wallet.ReferenceRide, rideID, "ride booking"); err != nil {
			_ = s.rides.Release(ctx, rideID, req.Seats, req.Luggage)
			return nil, err
		}
	}

	b := &Booking{
		RideID: rideID, PassengerID: passengerID, Seats: req.Seats, Luggage: req.Luggage,
		Pickup: req.Pickup, Dropoff: req.Dropoff,
		Status: StatusAccepted, PaymentStatus: PaymentPaid, PaymentMethod: MethodWallet,
		AmountGross: amount,
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		_ = s.rides.Release(ctx, rideID, req.Seats, req.Luggage)
		if amount > 0 {
			if _, credErr := s.wallets.Credit(ctx, passengerID, wallet.KindRefund, amount, wallet.ReferenceRide, rideID, "booking creation failed"); credErr != nil {
				logger.Error("failed to reverse wallet debit after booking creation failure", "passengerId", passengerID, "err", credErr)
			}
		}
		if err == ErrDuplicate {
			return nil, apperr.Conflict("you already have a booking on this ride")
		}
		return nil, apperr.Transient("failed to create booking", err)
	}

	if amount > 0 {
		fee := wallet.ApplyFee(amount, s.wallets.FeePolicy())
		if _, err := s.wallets.CreditEarning(ctx, r.DriverID, fee, wallet.ReferenceBooking, created.ID, "ride earning"); err != nil {
			// The passenger's payment already cleared and the booking
			// already exists; the driver's credit is reconciled out of
			// band rather than unwinding an otherwise-successful booking.
			logger.Error("failed to credit driver earning after wallet-paid booking", "bookingId", created.ID, "driverId", r.DriverID, "err", err)
		}
	}

	s.emit(ctx, r.DriverID, notification.KindBookingAccepted, notification.BookingStatusPayload(rideID, created.ID, "accepted"))
	metrics.RecordBooking("accepted", "wallet")
	return created, nil
}

func (s *service) UpdateSeats(ctx context.Context, bookingID, passengerID primitive.ObjectID, seats, luggage int) (*Booking, error) {
	b, err := s.repo.UpdateSeats(ctx, bookingID, passengerID, seats, luggage)
	if err != nil {
		if err == ErrTransitionRejected {
			return nil, apperr.State("booking can only be edited while pending")
		}
		return nil, apperr.Transient("failed to update booking", err)
	}
	return b, nil
}

// Transition drives spec.md §4.5's status matrix. Every branch is
// gated on the actor's role in the ride and on the booking's current
// status, since the underlying repository CAS only guards the status
// half of that check.
func (s *service) Transition(ctx context.Context, bookingID, actorID primitive.ObjectID, to Status) (*Booking, string, error) {
	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, "", apperr.NotFound("booking not found")
	}
	r, err := s.rides.FindByID(ctx, b.RideID)
	if err != nil {
		return nil, "", apperr.NotFound("ride not found")
	}

	switch {
	case b.Status == StatusPending && to == StatusAccepted:
		return s.acceptPending(ctx, b, r, actorID)
	case b.Status == StatusPending && to == StatusRejected:
		return s.rejectPending(ctx, b, r, actorID)
	case b.Status == StatusPending && to == StatusCancelled:
		if actorID != b.PassengerID {
			return nil, "", apperr.Permission("only the passenger can withdraw a pending booking")
		}
		updated, err := s.repo.Transition(ctx, b.ID, StatusPending, StatusCancelled)
		if err != nil {
			return nil, "", apperr.State("booking already left the pending state")
		}
		metrics.RecordBooking("cancelled", string(b.PaymentMethod))
		return updated, "", nil
	case b.Status == StatusAccepted && to == StatusCancelled:
		if actorID != b.PassengerID {
			return nil, "", apperr.Permission("only the passenger can cancel an accepted booking")
		}
		if !r.DepartureAt.Add(-cancellationCutoffHours * time.Hour).After(s.clock.Now()) {
			return nil, "", apperr.State("bookings can only be cancelled at least 24 hours before departure")
		}
		return s.cancelAccepted(ctx, b, r, RefundPassengerCancelled)
	default:
		return nil, "", apperr.State("that transition is not allowed from the booking's current status")
	}
}

func (s *service) acceptPending(ctx context.Context, b *Booking, r *ride.Ride, actorID primitive.ObjectID) (*Booking, string, error) {
	if actorID != r.DriverID {
		return nil, "", apperr.Permission("only the driver can accept a booking")
	}
	ok, err := s.rides.TryReserve(ctx, b.RideID, b.Seats, b.Luggage)
	if err != nil {
		return nil, "", apperr.Transient("failed to reserve capacity", err)
	}
	if !ok {
		return nil, "", apperr.Capacity("not enough seats or luggage space left on this ride")
	}
	updated, err := s.repo.Transition(ctx, b.ID, StatusPending, StatusAccepted)
	if err != nil {
		_ = s.rides.Release(ctx, b.RideID, b.Seats, b.Luggage)
		return nil, "", apperr.State("booking already left the pending state")
	}
	s.emit(ctx, b.PassengerID, notification.KindBookingAccepted, notification.BookingStatusPayload(b.RideID, b.ID, "accepted"))
	metrics.RecordBooking("accepted", string(b.PaymentMethod))
	return updated, "", nil
}

func (s *service) rejectPending(ctx context.Context, b *Booking, r *ride.Ride, actorID primitive.ObjectID) (*Booking, string, error) {
	if actorID != r.DriverID {
		return nil, "", apperr.Permission("only the driver can reject a booking")
	}
	updated, err := s.repo.Transition(ctx, b.ID, StatusPending, StatusRejected)
	if err != nil {
		return nil, "", apperr.State("booking already left the pending state")
	}
	s.emit(ctx, b.PassengerID, notification.KindBookingRejected, notification.BookingStatusPayload(b.RideID, b.ID, "rejected"))
	metrics.RecordBooking("rejected", string(b.PaymentMethod))
	return updated, "", nil
}

// cancelAccepted always commits the status change first: the refund
// leg is best-effort per spec.md §4.5, and a refund failure is
// reported back as a warning message rather than rolled back into a
// failed cancellation.
func (s *service) cancelAccepted(ctx context.Context, b *Booking, r *ride.Ride, reason RefundReason) (*Booking, string, error) {
	updated, err := s.repo.Transition(ctx, b.ID, StatusAccepted, StatusCancelled)
	if err != nil {
		return nil, "", apperr.State("booking already left the accepted state")
	}
	_ = s.rides.Release(ctx, b.RideID, b.Seats, b.Luggage)

	warning := ""
	if refundErr := s.refundBooking(ctx, updated, r.DriverID, reason); refundErr != nil {
		logger.Error("booking cancelled but refund failed; needs manual reconciliation", "bookingId", b.ID, "err", refundErr)
		warning = "booking cancelled, but the refund could not be processed automatically and will be reconciled manually"
	}

	s.emit(ctx, r.DriverID, notification.KindBookingCancelled, notification.BookingStatusPayload(b.RideID, b.ID, "cancelled"))
	metrics.RecordBooking("cancelled", string(b.PaymentMethod))
	metrics.RecordBookingCancellation(string(reason))
	return updated, warning, nil
}

// refundBooking implements spec.md's open-question decision: the
// passenger is always refunded the full gross amount; if the driver
// was paid through the internal wallet (no connected account), their
// net share is clawed back; the platform fee transaction is never
// reversed.
func (s *service) refundBooking(ctx context.Context, b *Booking, driverID primitive.ObjectID, reason RefundReason) error {
	if b.PaymentStatus != PaymentPaid || b.AmountGross <= 0 {
		return nil
	}
	fee := wallet.ApplyFee(b.AmountGross, s.wallets.FeePolicy())
	refundID := ""

	switch b.PaymentMethod {
	case MethodCard:
		intent, err := s.gateway.RetrieveIntent(ctx, b.PSPIntentID)
		reverse := err == nil && intent.DestinationAccountID != ""
		refund, err := s.gateway.RefundIntent(ctx, payment.RefundParams{
			IntentID: b.PSPIntentID, ReverseTransfer: reverse, RefundApplicationFee: reverse,
		})
		if err != nil {
			return apperr.Transient("failed to refund card payment", err)
		}
		refundID = refund.ID
		if _, err := s.wallets.Credit(ctx, b.PassengerID, wallet.KindRefund, b.AmountGross, wallet.ReferenceBooking, b.ID, "booking refund"); err != nil {
			return apperr.Transient("card refund succeeded but passenger wallet credit failed", err)
		}
		if !reverse {
			if _, err := s.wallets.Debit(ctx, driverID, wallet.KindRefund, fee.Net, wallet.ReferenceBooking, b.ID, "booking refund clawback"); err != nil {
				logger.Error("failed to claw back driver wallet after card refund", "bookingId", b.ID, "err", err)
			}
		}
	case MethodWallet:
		if _, err := s.wallets.Credit(ctx, b.PassengerID, wallet.KindRefund, b.AmountGross, wallet.ReferenceBooking, b.ID, "booking refund"); err != nil {
			return apperr.Transient("failed to credit passenger refund", err)
		}
		if _, err := s.wallets.Debit(ctx, driverID, wallet.KindRefund, fee.Net, wallet.ReferenceBooking, b.ID, "booking refund clawback"); err != nil {
			logger.Error("failed to claw back driver wallet after wallet refund", "bookingId", b.ID, "err", err)
		}
	default:
		return nil
	}

	if err := s.repo.SetRefunded(ctx, b.ID, refundID, reason); err != nil {
		logger.Error("refund succeeded but booking record could not be marked refunded", "bookingId", b.ID, "err", err)
	}
	return nil
}

// CancelRide is the driver-initiated whole-ride cancellation: it
// freezes the ride against further reservation, then cascades a
// cancel-and-refund over every pending and accepted booking.
func (s *service) CancelRide(ctx context.Context, rideID, driverID primitive.ObjectID) (int, string, error) {
	r, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return 0, "", apperr.NotFound("ride not found")
	}
	if r.DriverID != driverID {
		return 0, "", apperr.Permission("only the driver can cancel their own ride")
	}
	if r.Status != ride.StatusActive {
		return 0, "", apperr.State("ride is not active")
	}
	if !r.DepartureAt.Add(-rideCancelCutoffHours * time.Hour).After(s.clock.Now()) {
		return 0, "", apperr.State("rides can only be cancelled at least 12 hours before departure")
	}

	if err := s.rides.Freeze(ctx, rideID); err != nil {
		return 0, "", apperr.Transient("failed to cancel ride", err)
	}

	bookings, _, err := s.repo.ListByRide(ctx, rideID, 1, 1000)
	if err != nil {
		return 0, "", apperr.Transient("ride cancelled, but its bookings could not be loaded for cascade", err)
	}

	cancelled := 0
	failures := 0
	for i := range bookings {
		b := bookings[i]
		switch b.Status {
		case StatusPending:
			if _, err := s.repo.Transition(ctx, b.ID, StatusPending, StatusCancelled); err != nil {
				continue
			}
			cancelled++
			s.emit(ctx, b.PassengerID, notification.KindRideCancelled, notification.RideCancelledPayload(rideID))
		case StatusAccepted:
			updated, err := s.repo.Transition(ctx, b.ID, StatusAccepted, StatusCancelled)
			if err != nil {
				continue
			}
			_ = s.rides.Release(ctx, rideID, b.Seats, b.Luggage)
			if refundErr := s.refundBooking(ctx, updated, driverID, RefundRideCancelled); refundErr != nil {
				logger.Error("ride cancelled but a booking refund failed; needs manual reconciliation", "bookingId", b.ID, "err", refundErr)
				failures++
			}
			cancelled++
			s.emit(ctx, b.PassengerID, notification.KindRideCancelled, notification.RideCancelledPayload(rideID))
		}
	}
	metrics.RecordBookingCancellation(string(RefundRideCancelled))

	warning := ""
	if failures > 0 {
		warning = fmt.Sprintf("ride cancelled; %d of %d refunds could not be processed automatically and will be reconciled manually", failures, cancelled)
	}
	return cancelled, warning, nil
}

func (s *service) Get(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("booking not found")
	}
	return b, nil
}

func (s *service) MyBookings(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	return s.repo.ListByPassenger(ctx, passengerID, page, limit)
}

func (s *service) ListByRide(ctx context.Context, rideID, driverID primitive.ObjectID, page, limit int) ([]Booking, int64, error) {
	r, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return nil, 0, apperr.NotFound("ride not found")
	}
	if r.DriverID != driverID {
		return nil, 0, apperr.Permission("only the driver can view bookings on their own ride")
	}
	return s.repo.ListByRide(ctx, rideID, page, limit)
}
