package payout

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
	"airpool/internal/apperr"
	"airpool/internal/auth"
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

// Withdraw handles POST /wallet/withdraw.
func (h *Handler) Withdraw(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.Withdraw(c.Request.Context(), p.UserID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, out, "")
}

// List handles GET /wallet/payouts.
func (h *Handler) List(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, total, err := h.svc.List(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, out, api.NewPagination(page, limit, total))
}

// ConnectBank handles POST /wallet/connect-bank.
func (h *Handler) ConnectBank(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	out, err := h.svc.ConnectBank(c.Request.Context(), p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, out, "")
}

// BankStatus handles GET /wallet/bank-status.
func (h *Handler) BankStatus(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	out, err := h.svc.BankStatus(c.Request.Context(), p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, out, "")
}
