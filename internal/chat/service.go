package chat

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/booking"
	"airpool/internal/request"
	"airpool/internal/ride"
)

// Service is the chat surface: send/list are gated on the caller
// actually being a party to the ride or request the thread belongs
// to, since nothing else in this package enforces that.
type Service interface {
	Send(ctx context.Context, kind ThreadKind, threadID, senderID primitive.ObjectID, req SendMessageRequest) (*Message, error)
	List(ctx context.Context, kind ThreadKind, threadID, callerID primitive.ObjectID, page, limit int) ([]Message, int64, error)
}

type service struct {
	repo     Repository
	rides    ride.Repository
	bookings booking.Repository
	requests request.Repository
}

func NewService(repo Repository, rides ride.Repository, bookings booking.Repository, requests request.Repository) Service {
	return &service{repo: repo, rides: rides, bookings: bookings, requests: requests}
}

func (s *service) authorize(ctx context.Context, kind ThreadKind, threadID, userID primitive.ObjectID) error {
	switch kind {
	case ThreadRide:
		return s.authorizeRide(ctx, threadID, userID)
	case ThreadRequest:
		return s.authorizeRequest(ctx, threadID, userID)
	default:
		return apperr.Validation("unknown thread kind")
	}
}

func (s *service) authorizeRide(ctx context.Context, rideID, userID primitive.ObjectID) error {
	r, err := s.rides.FindByID(ctx, rideID)
	if err != nil {
		return apperr.NotFound("ride not found")
	}
	if r.DriverID == userID {
		return nil
	}
	if b, err := s.bookings.FindByRideAndPassenger(ctx, rideID, userID); err == nil && b.Status != booking.StatusRejected {
		return nil
	}
	return apperr.Permission("not a party to this ride")
}

func (s *service) authorizeRequest(ctx context.Context, requestID, userID primitive.ObjectID) error {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return apperr.NotFound("ride request not found")
	}
	if req.PassengerID == userID || req.MatchedDriverID == userID {
		return nil
	}
	offers, err := s.requests.ListOffersByRequest(ctx, requestID)
	if err == nil {
		for _, o := range offers {
			if o.DriverID == userID {
				return nil
			}
		}
	}
	return apperr.Permission("not a party to this ride request")
}

func (s *service) Send(ctx context.Context, kind ThreadKind, threadID, senderID primitive.ObjectID, req SendMessageRequest) (*Message, error) {
	if err := s.authorize(ctx, kind, threadID, senderID); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, &Message{
		ThreadKind: kind, ThreadID: threadID, SenderID: senderID, Body: req.Body,
	})
	if err != nil {
		return nil, apperr.Transient("failed to save message", err)
	}
	return created, nil
}

func (s *service) List(ctx context.Context, kind ThreadKind, threadID, callerID primitive.ObjectID, page, limit int) ([]Message, int64, error) {
	if err := s.authorize(ctx, kind, threadID, callerID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByThread(ctx, kind, threadID, page, limit)
}
