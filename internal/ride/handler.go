package ride

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

// Create publishes a new ride. Only drivers/both may publish.
func (h *Handler) Create(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	if p.Role != auth.RoleDriver && p.Role != auth.RoleBoth {
		api.Fail(c, http.StatusForbidden, "only drivers may publish rides")
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	r, err := h.svc.Create(c.Request.Context(), p.UserID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusCreated, r, "")
}

func (h *Handler) Get(c *gin.Context) {
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}

	r, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, r, "")
}

func (h *Handler) Update(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid ride id")
		return
	}

	var req UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	r, err := h.svc.Update(c.Request.Context(), id, p.UserID, req)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OK(c, http.StatusOK, r, "")
}

func (h *Handler) MyRides(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rides, total, err := h.svc.MyRides(c.Request.Context(), p.UserID, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, rides, api.NewPagination(page, limit, total))
}

// Search implements GET /rides/search (spec.md §4.7).
func (h *Handler) Search(c *gin.Context) {
	var f SearchFilter
	if airportID := c.Query("airportId"); airportID != "" {
		id, err := mongoutil.ParseID(airportID)
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "invalid airportId")
			return
		}
		f.AirportID = id
	} else {
		api.Fail(c, http.StatusBadRequest, "airportId is required")
		return
	}
	f.Direction = Direction(c.Query("direction"))
	if d := c.Query("date"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			api.Fail(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		f.Date = &t
	}
	if ms := c.Query("minSeats"); ms != "" {
		f.MinSeats, _ = strconv.Atoi(ms)
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

	rides, total, err := h.svc.Search(c.Request.Context(), f, page, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	api.OKPage(c, rides, api.NewPagination(page, limit, total))
}

// RoutePreview echoes back a two-point (or supplied waypoint) route
// without persisting anything, for the client to render before
// publishing. The real routing service is an external collaborator
// per spec.md §1; this just shapes the fallback GeoJSON.
func (h *Handler) RoutePreview(c *gin.Context) {
	var req struct {
		Home      Home         `json:"home" binding:"required"`
		Waypoints [][2]float64 `json:"waypoints,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	route := NewRoute([][2]float64{{req.Home.Lon, req.Home.Lat}, {req.Home.Lon, req.Home.Lat}})
	if len(req.Waypoints) >= 2 {
		route = NewRoute(req.Waypoints)
	}
	api.OK(c, http.StatusOK, route, "")
}
