package rating

import (
	"net/http"

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

func (h *Handler) Pending(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	prompts, err := h.svc.Pending(c.Request.Context(), p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, prompts, "")
}

func (h *Handler) CanRate(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	bookingID, err := mongoutil.ParseID(c.Param("bookingId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid booking id")
		return
	}
	canRate, err := h.svc.CanRate(c.Request.Context(), bookingID, p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"canRate": canRate}, "")
}

func (h *Handler) Create(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rt, err := h.svc.Create(c.Request.Context(), p.UserID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, rt, "")
}

func (h *Handler) Stats(c *gin.Context) {
	userID, err := mongoutil.ParseID(c.Param("userId"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid user id")
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, stats, "")
}
