package airport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
	"airpool/internal/apperr"
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

func parseFloatQuery(c *gin.Context, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// List handles GET /airports?q=&country=&latitude=&longitude=&radius=.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	f := SearchFilter{
		Query:     c.Query("q"),
		Country:   c.Query("country"),
		PickupLon: parseFloatQuery(c, "longitude"),
		PickupLat: parseFloatQuery(c, "latitude"),
	}
	if radius := parseFloatQuery(c, "radius"); radius != nil {
		f.RadiusMeters = *radius
	}

	airports, total, err := h.svc.Search(c.Request.Context(), f, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, airports, api.NewPagination(page, limit, total))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid airport id")
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, a, "")
}
