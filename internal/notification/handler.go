package notification

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
	bus Bus
}

func NewHandler(bus Bus) *Handler {
	return &Handler{bus: bus}
}

func writeErr(c *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		api.Fail(c, ae.Status(), ae.Message)
		return
	}
	api.Fail(c, http.StatusInternalServerError, "internal error")
}

func (h *Handler) List(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifications, total, err := h.bus.List(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, notifications, api.NewPagination(page, limit, total))
}

func (h *Handler) MarkRead(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.bus.MarkRead(c.Request.Context(), id, p.UserID); err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, nil, "marked read")
}
