package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/api"
	"airpool/internal/apperr"
	"airpool/internal/auth"
	"airpool/internal/mongoutil"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func writeErr(c *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		api.Fail(c, ae.Status(), ae.Message)
		return
	}
	api.Fail(c, http.StatusInternalServerError, "internal error")
}

// resolveRideID reads the ride id from the :rideId path segment when
// present, falling back to the request body's rideId field for the
// top-level /payments/* aliases that carry no path segment at all.
func resolveRideID(c *gin.Context, bodyRideID string) (primitive.ObjectID, error) {
	if raw := c.Param("rideId"); raw != "" {
		return mongoutil.ParseID(raw)
	}
	return mongoutil.ParseID(bodyRideID)
}

// Create handles POST /rides/:rideId/bookings, a pending unpaid claim.
func (h *Handler) Create(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	rideID, err := mongoutil.ParseID(c.Param("rideId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.svc.CreateBooking(c.Request.Context(), p.UserID, rideID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, b, "")
}

// PayWithCard handles POST /rides/:rideId/bookings/card (and its
// top-level alias POST /payments/create-intent), returning a
// PaymentIntent client secret for the client SDK to confirm.
func (h *Handler) PayWithCard(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rideID, err := resolveRideID(c, req.RideID)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}

	intent, err := h.svc.PayAndBookWithCard(c.Request.Context(), p.UserID, rideID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, intent, "")
}

// CompletePayment handles POST /bookings/complete-payment, confirming
// an already-succeeded PaymentIntent into a Booking.
func (h *Handler) CompletePayment(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.svc.CompletePayment(c.Request.Context(), p.UserID, req.IntentID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, b, "")
}

// PayWithWallet handles POST /rides/:rideId/bookings/wallet (and its
// top-level alias POST /payments/wallet).
func (h *Handler) PayWithWallet(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rideID, err := resolveRideID(c, req.RideID)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}

	b, err := h.svc.PayAndBookWithWallet(c.Request.Context(), p.UserID, rideID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, b, "")
}

func (h *Handler) Get(c *gin.Context) {
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, b, "")
}

func (h *Handler) UpdateSeats(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req UpdateSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.svc.UpdateSeats(c.Request.Context(), id, p.UserID, req.Seats, req.Luggage)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, b, "")
}

// Transition handles PATCH /bookings/:id, driving the accept /
// reject / cancel state machine.
func (h *Handler) Transition(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, warning, err := h.svc.Transition(c.Request.Context(), id, p.UserID, req.Status)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, b, warning)
}

// CancelRide handles DELETE /rides/:rideId, the driver-initiated
// whole-ride cancellation cascade.
func (h *Handler) CancelRide(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	rideID, err := mongoutil.ParseID(c.Param("rideId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}

	cancelled, warning, err := h.svc.CancelRide(c.Request.Context(), rideID, p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"bookingsCancelled": cancelled}, warning)
}

func (h *Handler) MyBookings(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	bookings, total, err := h.svc.MyBookings(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, bookings, api.NewPagination(page, limit, total))
}

// ListByRide handles GET /rides/:id/bookings, driver-only.
func (h *Handler) ListByRide(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	rideID, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	bookings, total, err := h.svc.ListByRide(c.Request.Context(), rideID, p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, bookings, api.NewPagination(page, limit, total))
}
