package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
	"airpool/internal/apperr"
	"airpool/internal/logger"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Stripe handles POST /stripe/webhook. It must be routed before any
// middleware that consumes the request body (JSON binding, gzip),
// since Stripe's signature is computed over the exact raw bytes.
func (h *Handler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.svc.HandleRawEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if ae, ok := apperr.As(err); ok {
			api.Fail(c, ae.Status(), ae.Message)
			return
		}
		logger.Error("webhook: failed to process event", "err", err)
		api.Fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	api.OK(c, http.StatusOK, gin.H{"received": true}, "")
}
