package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
	"airpool/internal/apperr"
	"airpool/internal/auth"
)

// EarningsSummary is a read model over Wallet's running totals, for
// the driver-facing earnings dashboard.
type EarningsSummary struct {
	TotalEarned    int64  `json:"totalEarned"`
	TotalWithdrawn int64  `json:"totalWithdrawn"`
	Balance        int64  `json:"balance"`
	PendingBalance int64  `json:"pendingBalance"`
	Currency       string `json:"currency"`
}

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

func (h *Handler) GetBalance(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}

	w, err := h.svc.GetWallet(c.Request.Context(), p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, w, "")
}

func (h *Handler) ListTransactions(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := TransactionFilter{
		Kind:          TransactionKind(c.Query("kind")),
		Status:        TransactionStatus(c.Query("status")),
		ReferenceKind: ReferenceKind(c.Query("referenceKind")),
	}

	txs, total, err := h.svc.ListTransactions(c.Request.Context(), p.UserID, filter, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, txs, api.NewPagination(page, limit, total))
}

// EarningsSummary handles GET /wallet/earnings-summary.
func (h *Handler) EarningsSummary(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	w, err := h.svc.GetWallet(c.Request.Context(), p.UserID)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, EarningsSummary{
		TotalEarned: w.TotalEarned, TotalWithdrawn: w.TotalWithdrawn,
		Balance: w.Balance, PendingBalance: w.PendingBalance, Currency: w.Currency,
	}, "")
}

// CalculateEarnings handles GET /wallet/calculate-earnings?amount=.
// It previews the platform-fee split a ride of that gross amount
// would produce, without posting anything to the ledger.
func (h *Handler) CalculateEarnings(c *gin.Context) {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount <= 0 {
		api.Fail(c, http.StatusBadRequest, "amount must be a positive integer")
		return
	}
	api.OK(c, http.StatusOK, ApplyFee(amount, h.svc.FeePolicy()), "")
}
