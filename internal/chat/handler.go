package chat

import (
	"net/http"
	"strconv"

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

func (h *Handler) send(c *gin.Context, kind ThreadKind, param string) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	threadID, err := mongoutil.ParseID(c.Param(param))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.svc.Send(c.Request.Context(), kind, threadID, p.UserID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, m, "")
}

func (h *Handler) list(c *gin.Context, kind ThreadKind, param string) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	threadID, err := mongoutil.ParseID(c.Param(param))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, total, err := h.svc.List(c.Request.Context(), kind, threadID, p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, messages, api.NewPagination(page, limit, total))
}

// SendRideMessage handles POST /rides/:rideId/messages.
func (h *Handler) SendRideMessage(c *gin.Context) { h.send(c, ThreadRide, "rideId") }

// ListRideMessages handles GET /rides/:id/messages.
func (h *Handler) ListRideMessages(c *gin.Context) { h.list(c, ThreadRide, "id") }

// SendRequestMessage handles POST /ride-requests/:id/messages.
func (h *Handler) SendRequestMessage(c *gin.Context) { h.send(c, ThreadRequest, "id") }

// ListRequestMessages handles GET /ride-requests/:id/messages.
func (h *Handler) ListRequestMessages(c *gin.Context) { h.list(c, ThreadRequest, "id") }
