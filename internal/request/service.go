package request

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
	"airpool/internal/wallet"
)

const currency = "usd"

// Service is spec.md §4.6's RequestEngine.
type Service interface {
	CreateRequest(ctx context.Context, passengerID primitive.ObjectID, in CreateRequestInput) (*RideRequest, error)
	Get(ctx context.Context, id primitive.ObjectID) (*RideRequest, error)
	MyRequests(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]RideRequest, int64, error)
	MyOffers(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Offer, int64, error)
	Search(ctx context.Context, f SearchFilter, driverID primitive.ObjectID, page, limit int) ([]Summary, int64, error)

	MakeOffer(ctx context.Context, requestID, driverID primitive.ObjectID, in MakeOfferInput) (*Offer, error)
	WithdrawOffer(ctx context.Context, offerID, driverID primitive.ObjectID) error
	RejectOffer(ctx context.Context, offerID, passengerID primitive.ObjectID) error

	CreateOfferIntent(ctx context.Context, requestID, offerID, passengerID primitive.ObjectID) (*payment.Intent, error)
	AcceptOfferWithCard(ctx context.Context, passengerID primitive.ObjectID, intentID string) (*RideRequest, error)
	AcceptOfferWithWallet(ctx context.Context, requestID, offerID, passengerID primitive.ObjectID) (*RideRequest, error)

	CancelRequest(ctx context.Context, requestID, passengerID primitive.ObjectID) error

	// ExpireDue sweeps pending requests past expiresAt, returning the
	// number transitioned. Called by a background ticker.
	ExpireDue(ctx context.Context) (int, error)
}

type service struct {
	repo     Repository
	rides    ride.Repository
	wallets  wallet.Service
	gateway  payment.Gateway
	notifier notification.Bus
	clock    clock.Clock
}

func NewService(repo Repository, rides ride.Repository, wallets wallet.Service, gateway payment.Gateway, notifier notification.Bus, c clock.Clock) Service {
	return &service{repo: repo, rides: rides, wallets: wallets, gateway: gateway, notifier: notifier, clock: c}
}

func (s *service) emit(ctx context.Context, userID primitive.ObjectID, kind notification.Kind, payload bson.M) {
	if _, err := s.notifier.Emit(ctx, userID, kind, payload); err != nil {
		logger.Error("failed to emit notification", "kind", kind, "err", err)
	}
}

// CreateRequest is spec.md §4.6's broadcast: expiresAt is fixed one
// hour past the preferred departure, per that section's rule.
func (s *service) CreateRequest(ctx context.Context, passengerID primitive.ObjectID, in CreateRequestInput) (*RideRequest, error) {
	airportID, err := primitive.ObjectIDFromHex(in.AirportID)
	if err != nil {
		return nil, apperr.Validation("invalid airport id")
	}
	if in.PreferredAt.Before(s.clock.Now()) {
		return nil, apperr.Validation("preferred time must be in the future")
	}

	req := &RideRequest{
		PassengerID: passengerID, AirportID: airportID, Direction: in.Direction,
		Location: in.Location, PreferredAt: in.PreferredAt, FlexibilityMinutes: in.FlexibilityMinutes,
		SeatsNeeded: in.SeatsNeeded, Luggage: in.Luggage, MaxPricePerSeat: in.MaxPricePerSeat,
		Notes: in.Notes, ExpiresAt: in.PreferredAt.Add(time.Hour),
	}
	created, err := s.repo.CreateRequest(ctx, req)
	if err != nil {
		return nil, apperr.Transient("failed to create ride request", err)
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id primitive.ObjectID) (*RideRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("ride request not found")
	}
	return req, nil
}

func (s *service) MyRequests(ctx context.Context, passengerID primitive.ObjectID, page, limit int) ([]RideRequest, int64, error) {
	return s.repo.ListByPassenger(ctx, passengerID, page, limit)
}

func (s *service) MyOffers(ctx context.Context, driverID primitive.ObjectID, page, limit int) ([]Offer, int64, error) {
	return s.repo.ListOffersByDriver(ctx, driverID, page, limit)
}

func (s *service) Search(ctx context.Context, f SearchFilter, driverID primitive.ObjectID, page, limit int) ([]Summary, int64, error) {
	return s.repo.Search(ctx, f, driverID, page, limit)
}

// MakeOffer enforces spec.md §4.6's window: only while the request is
// still pending and before it expires. The one-pending-offer-per-
// driver rule is enforced by the partial unique index on the offers
// collection; ErrDuplicateOffer surfaces it as a conflict.
func (s *service) MakeOffer(ctx context.Context, requestID, driverID primitive.ObjectID, in MakeOfferInput) (*Offer, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, apperr.NotFound("ride request not found")
	}
	if req.PassengerID == driverID {
		return nil, apperr.Validation("a passenger cannot offer on their own request")
	}
	if req.Status != StatusPending {
		return nil, apperr.State("this request is no longer accepting offers")
	}
	if !req.ExpiresAt.After(s.clock.Now()) {
		return nil, apperr.State("this request has expired")
	}

	offer := &Offer{RequestID: requestID, DriverID: driverID, PricePerSeat: in.PricePerSeat, Message: in.Message}
	if in.RideID != "" {
		rideID, err := primitive.ObjectIDFromHex(in.RideID)
		if err != nil {
			return nil, apperr.Validation("invalid ride id")
		}
		r, err := s.rides.FindByID(ctx, rideID)
		if err != nil {
			return nil, apperr.NotFound("ride not found")
		}
		if r.DriverID != driverID {
			return nil, apperr.Permission("you can only offer against your own ride")
		}
		offer.RideID = rideID
	}

	created, err := s.repo.CreateOffer(ctx, offer)
	if err != nil {
		if err == ErrDuplicateOffer {
			return nil, apperr.Conflict("you already have a pending offer on this request")
		}
		return nil, apperr.Transient("failed to create offer", err)
	}

	s.emit(ctx, req.PassengerID, notification.KindOfferReceived, notification.OfferPayload(requestID, created.ID, in.PricePerSeat))
	metrics.RecordOffer("pending")
	return created, nil
}

func (s *service) WithdrawOffer(ctx context.Context, offerID, driverID primitive.ObjectID) error {
	if err := s.repo.WithdrawOffer(ctx, offerID, driverID); err != nil {
		if err == ErrTransitionRejected {
			return apperr.State("offer is no longer pending")
		}
		return apperr.Transient("failed to withdraw offer", err)
	}
	metrics.RecordOffer("withdrawn")
	return nil
}

func (s *service) RejectOffer(ctx context.Context, offerID, passengerID primitive.ObjectID) error {
	offer, err := s.repo.FindOfferByID(ctx, offerID)
	if err != nil {
		return apperr.NotFound("offer not found")
	}
	req, err := s.repo.FindByID(ctx, offer.RequestID)
	if err != nil {
		return apperr.NotFound("ride request not found")
	}
	if req.PassengerID != passengerID {
		return apperr.Permission("only the requesting passenger can reject an offer")
	}
	if offer.Status != OfferPending {
		return apperr.State("offer is no longer pending")
	}

	if err := s.repo.RejectOffer(ctx, offer.ID); err != nil {
		if err == ErrTransitionRejected {
			return apperr.State("offer is no longer pending")
		}
		return apperr.Transient("failed to reject offer", err)
	}
	s.emit(ctx, offer.DriverID, notification.KindOfferRejected, notification.OfferPayload(req.ID, offer.ID, offer.PricePerSeat))
	metrics.RecordOffer("rejected")
	return nil
}

// CreateOfferIntent opens a card PaymentIntent for total =
// offer.pricePerSeat * request.seatsNeeded, mirroring
// booking.Service.PayAndBookWithCard's split between opening the
// intent and confirming it.
func (s *service) CreateOfferIntent(ctx context.Context, requestID, offerID, passengerID primitive.ObjectID) (*payment.Intent, error) {
	req, offer, err := s.loadPendingMatch(ctx, requestID, offerID, passengerID)
	if err != nil {
		return nil, err
	}

	total := offer.PricePerSeat * int64(req.SeatsNeeded)
	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		Amount: total, Currency: currency,
		Metadata: map[string]string{
			"requestId":   requestID.Hex(),
			"offerId":     offerID.Hex(),
			"passengerId": passengerID.Hex(),
		},
	})
	if err != nil {
		return nil, apperr.Payment("failed to start card payment")
	}
	return intent, nil
}

func (s *service) loadPendingMatch(ctx context.Context, requestID, offerID, passengerID primitive.ObjectID) (*RideRequest, *Offer, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, nil, apperr.NotFound("ride request not found")
	}
	if req.PassengerID != passengerID {
		return nil, nil, apperr.Permission("only the requesting passenger can accept an offer")
	}
	if req.Status != StatusPending {
		return nil, nil, apperr.State("this request has already been matched or closed")
	}
	offer, err := s.repo.FindOfferByID(ctx, offerID)
	if err != nil || offer.RequestID != requestID {
		return nil, nil, apperr.NotFound("offer not found")
	}
	if offer.Status != OfferPending {
		return nil, nil, apperr.State("offer is no longer pending")
	}
	return req, offer, nil
}

// AcceptOfferWithCard confirms an already-succeeded card PaymentIntent
// into the accept-one/reject-rest transaction. It re-checks the
// request is still pending — a slow client confirmation could have let
// it expire out from under this call.
func (s *service) AcceptOfferWithCard(ctx context.Context, passengerID primitive.ObjectID, intentID string) (*RideRequest, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, apperr.Payment("failed to retrieve payment")
	}
	if intent.Status != "succeeded" {
		return nil, apperr.Payment("payment has not succeeded")
	}

	requestID, err := primitive.ObjectIDFromHex(intent.Metadata["requestId"])
	if err != nil {
		return nil, apperr.State("payment intent is missing request metadata")
	}
	offerID, err := primitive.ObjectIDFromHex(intent.Metadata["offerId"])
	if err != nil {
		return nil, apperr.State("payment intent is missing offer metadata")
	}
	metaPassenger, err := primitive.ObjectIDFromHex(intent.Metadata["passengerId"])
	if err != nil || metaPassenger != passengerID {
		return nil, apperr.Permission("payment intent does not belong to this passenger")
	}

	req, offer, err := s.loadPendingMatch(ctx, requestID, offerID, passengerID)
	if err != nil {
		s.refundFailedIntent(ctx, intent)
		return nil, err
	}

	rideID := offer.RideID
	if !rideID.IsZero() {
		ok, err := s.tryReserveOnRide(ctx, rideID, req.SeatsNeeded, req.Luggage)
		if err != nil {
			s.refundFailedIntent(ctx, intent)
			return nil, err
		}
		if !ok {
			s.refundFailedIntent(ctx, intent)
			return nil, apperr.Capacity("the driver's ride no longer has room; payment has been refunded")
		}
	}

	updatedReq, _, err := s.repo.AcceptOfferAtomic(ctx, offer, offer.DriverID, rideID, intent.Amount)
	if err != nil {
		if !rideID.IsZero() {
			_ = s.rides.Release(ctx, rideID, req.SeatsNeeded, req.Luggage)
		}
		s.refundFailedIntent(ctx, intent)
		return nil, apperr.State("this request could not be matched; payment has been refunded")
	}

	s.fanOutAcceptance(ctx, updatedReq, offer)
	metrics.RecordOffer("accepted")
	return updatedReq, nil
}

func (s *service) tryReserveOnRide(ctx context.Context, rideID primitive.ObjectID, seats, luggage int) (bool, error) {
	ok, err := s.rides.TryReserve(ctx, rideID, seats, luggage)
	if err != nil {
		return false, apperr.Transient("failed to reserve capacity", err)
	}
	return ok, nil
}

func (s *service) refundFailedIntent(ctx context.Context, intent *payment.Intent) {
	reverse := intent.DestinationAccountID != ""
	if _, err := s.gateway.RefundIntent(ctx, payment.RefundParams{
		IntentID: intent.ID, ReverseTransfer: reverse, RefundApplicationFee: reverse,
	}); err != nil {
		logger.Error("failed to refund a payment intent that could not accept an offer", "intentId", intent.ID, "err", err)
	}
}

// AcceptOfferWithWallet debits the passenger's wallet, reserves
// capacity on the driver's ride if one was named, and runs the
// accept-one/reject-rest transaction, as an ordered sequence with
// compensating undo (the same pattern booking.Service uses for its
// wallet path).
func (s *service) AcceptOfferWithWallet(ctx context.Context, requestID, offerID, passengerID primitive.ObjectID) (*RideRequest, error) {
	req, offer, err := s.loadPendingMatch(ctx, requestID, offerID, passengerID)
	if err != nil {
		return nil, err
	}

	total := offer.PricePerSeat * int64(req.SeatsNeeded)
	rideID := offer.RideID

	if !rideID.IsZero() {
		ok, err := s.tryReserveOnRide(ctx, rideID, req.SeatsNeeded, req.Luggage)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Capacity("the driver's ride no longer has room")
		}
	}

	if total > 0 {
		if _, err := s.wallets.Debit(ctx, passengerID, wallet.KindRidePayment, total, wallet.ReferenceBooking, offer.ID, "ride request offer payment"); err != nil {
			if !rideID.IsZero() {
				_ = s.rides.Release(ctx, rideID, req.SeatsNeeded, req.Luggage)
			}
			return nil, err
		}
	}

	updatedReq, _, err := s.repo.AcceptOfferAtomic(ctx, offer, offer.DriverID, rideID, total)
	if err != nil {
		if !rideID.IsZero() {
			_ = s.rides.Release(ctx, rideID, req.SeatsNeeded, req.Luggage)
		}
		if total > 0 {
			if _, credErr := s.wallets.Credit(ctx, passengerID, wallet.KindRefund, total, wallet.ReferenceBooking, offer.ID, "offer acceptance failed"); credErr != nil {
				logger.Error("failed to reverse wallet debit after offer acceptance failure", "passengerId", passengerID, "err", credErr)
			}
		}
		return nil, apperr.State("this request could not be matched")
	}

	if total > 0 {
		fee := wallet.ApplyFee(total, s.wallets.FeePolicy())
		if _, err := s.wallets.CreditEarning(ctx, offer.DriverID, fee, wallet.ReferenceBooking, offer.ID, "ride request earning"); err != nil {
			logger.Error("failed to credit driver earning after wallet-paid offer acceptance", "offerId", offer.ID, "driverId", offer.DriverID, "err", err)
		}
	}

	s.fanOutAcceptance(ctx, updatedReq, offer)
	metrics.RecordOffer("accepted")
	return updatedReq, nil
}

func (s *service) fanOutAcceptance(ctx context.Context, req *RideRequest, chosen *Offer) {
	s.emit(ctx, chosen.DriverID, notification.KindRequestBooked, notification.RequestBookedPayload(req.ID, req.MatchedRideID, chosen.DriverID))

	others, err := s.repo.ListOffersByRequest(ctx, req.ID)
	if err != nil {
		logger.Error("failed to load sibling offers to notify after acceptance", "requestId", req.ID, "err", err)
		return
	}
	for _, o := range others {
		if o.ID == chosen.ID {
			continue
		}
		s.emit(ctx, o.DriverID, notification.KindOfferRejected, notification.OfferPayload(req.ID, o.ID, o.PricePerSeat))
	}
}

func (s *service) CancelRequest(ctx context.Context, requestID, passengerID primitive.ObjectID) error {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return apperr.NotFound("ride request not found")
	}
	if req.PassengerID != passengerID {
		return apperr.Permission("only the requesting passenger can cancel their request")
	}
	if req.Status != StatusPending {
		return apperr.State("only a pending request can be cancelled")
	}
	if _, err := s.repo.TransitionRequest(ctx, requestID, StatusPending, StatusCancelled); err != nil {
		return apperr.State("request already left the pending state")
	}
	return nil
}

// ExpireDue implements spec.md §4.6's periodic sweep.
func (s *service) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.repo.SweepExpirable(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expirable requests: %w", err)
	}
	n := 0
	for _, id := range ids {
		if err := s.repo.ExpireOne(ctx, id); err != nil {
			continue
		}
		n++
		metrics.RecordRequestExpired()
	}
	return n, nil
}
