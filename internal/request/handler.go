package request

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

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

// Create handles POST /ride-requests.
func (h *Handler) Create(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var in CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := h.svc.CreateRequest(c.Request.Context(), p.UserID, in)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, req, "")
}

func (h *Handler) Get(c *gin.Context) {
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride request id")
		return
	}
	req, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, req, "")
}

// MyRequests handles GET /ride-requests/my-requests.
func (h *Handler) MyRequests(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	reqs, total, err := h.svc.MyRequests(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, reqs, api.NewPagination(page, limit, total))
}

// MyOffers handles GET /ride-requests/my-offers, driver-side.
func (h *Handler) MyOffers(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offers, total, err := h.svc.MyOffers(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, offers, api.NewPagination(page, limit, total))
}

// Available handles GET /ride-requests/available, the driver-side
// search over open, unexpired requests.
func (h *Handler) Available(c *gin.Context) {
	p, _ := auth.GetPrincipal(c)

	var f SearchFilter
	if airportID := c.Query("airportId"); airportID != "" {
		id, err := mongoutil.ParseID(airportID)
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "invalid airportId")
			return
		}
		f.AirportID = id
	}
	f.Direction = Direction(c.Query("direction"))
	f.City = c.Query("city")
	if d := c.Query("date"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		f.Date = &t
	}
	if lat := c.Query("latitude"); lat != "" {
		if lon := c.Query("longitude"); lon != "" {
			latF, errLat := strconv.ParseFloat(lat, 64)
			lonF, errLon := strconv.ParseFloat(lon, 64)
			if errLat == nil && errLon == nil {
				f.PickupLat, f.PickupLon = &latF, &lonF
			}
		}
	}
	f.RadiusMeters, _ = strconv.ParseFloat(c.DefaultQuery("radius", "8000"), 64)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reqs, total, err := h.svc.Search(c.Request.Context(), f, p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, reqs, api.NewPagination(page, limit, total))
}

// MakeOffer handles POST /ride-requests/:id/offer.
func (h *Handler) MakeOffer(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	requestID, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride request id")
		return
	}
	var in MakeOfferInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	offer, err := h.svc.MakeOffer(c.Request.Context(), requestID, p.UserID, in)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, offer, "")
}

// WithdrawOffer handles DELETE /ride-requests/:id/offer.
func (h *Handler) WithdrawOffer(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	offerID, err := mongoutil.ParseID(c.Query("offerId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid offerId")
		return
	}
	if err := h.svc.WithdrawOffer(c.Request.Context(), offerID, p.UserID); err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"withdrawn": true}, "")
}

// RejectOffer handles PUT /ride-requests/:id/reject-offer.
func (h *Handler) RejectOffer(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	offerID, err := mongoutil.ParseID(c.Query("offerId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid offerId")
		return
	}
	if err := h.svc.RejectOffer(c.Request.Context(), offerID, p.UserID); err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"rejected": true}, "")
}

// AcceptOffer handles PUT /ride-requests/:id/accept-offer, the
// wallet-funded path (no client-side payment confirmation needed).
func (h *Handler) AcceptOffer(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	requestID, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride request id")
		return
	}
	var in AcceptOfferInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	offerID, err := mongoutil.ParseID(in.OfferID)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid offerId")
		return
	}
	req, err := h.svc.AcceptOfferWithWallet(c.Request.Context(), requestID, offerID, p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, req, "")
}

// CreateOfferIntent handles POST /payments/create-offer-intent.
func (h *Handler) CreateOfferIntent(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		RequestID string `json:"requestId" binding:"required"`
		OfferID   string `json:"offerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	requestID, err := mongoutil.ParseID(body.RequestID)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid requestId")
		return
	}
	offerID, err := mongoutil.ParseID(body.OfferID)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid offerId")
		return
	}
	intent, err := h.svc.CreateOfferIntent(c.Request.Context(), requestID, offerID, p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, intent, "")
}

// AcceptOfferWithPayment handles POST
// /ride-requests/:id/accept-offer-with-payment: confirms an
// already-succeeded card PaymentIntent into the match.
func (h *Handler) AcceptOfferWithPayment(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		IntentID string `json:"intentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := h.svc.AcceptOfferWithCard(c.Request.Context(), p.UserID, body.IntentID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, req, "")
}

// Cancel handles PUT /ride-requests/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	requestID, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride request id")
		return
	}
	if err := h.svc.CancelRequest(c.Request.Context(), requestID, p.UserID); err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"cancelled": true}, "")
}
