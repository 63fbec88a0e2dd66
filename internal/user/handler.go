package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"airpool/internal/api"
	"airpool/internal/auth"
	"airpool/internal/mongoutil"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register creates a new user and mints an access/refresh pair.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, access, refresh, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		if err == ErrEmailExists {
			api.Fail(c, http.StatusConflict, "email already registered")
			return
		}
		api.Fail(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	api.OK(c, http.StatusCreated, LoginResponse{AccessToken: access, RefreshToken: refresh, User: *u}, "registered")
}

// Login authenticates an existing user by email+password.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, access, refresh, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		api.Fail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	api.OK(c, http.StatusOK, LoginResponse{AccessToken: access, RefreshToken: refresh, User: *u}, "")
}

// Refresh mints a fresh access token from a still-valid refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, http.StatusBadRequest, "refreshToken is required")
		return
	}

	access, u, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		api.Fail(c, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	api.OK(c, http.StatusOK, gin.H{"accessToken": access, "user": u}, "")
}

// Logout is a no-op acknowledgement: this service issues stateless
// JWTs, so there is no server-side session to tear down.
func (h *Handler) Logout(c *gin.Context) {
	api.OK(c, http.StatusOK, nil, "logged out")
}

// Me returns the authenticated principal's profile.
func (h *Handler) Me(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}

	u, err := h.svc.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		api.Fail(c, http.StatusNotFound, "user not found")
		return
	}

	api.OK(c, http.StatusOK, u, "")
}

// DeleteMe soft-deletes the authenticated user's account.
func (h *Handler) DeleteMe(c *gin.Context) {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		api.Fail(c, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.SoftDelete(c.Request.Context(), p.UserID); err != nil {
		api.Fail(c, http.StatusInternalServerError, "failed to delete account")
		return
	}

	api.OK(c, http.StatusOK, nil, "account deleted")
}

// GetByID looks up any user's public profile by path id, used by
// chat/ride/booking views that need to render a counterparty's name.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := mongoutil.ParseID(c.Param("id"))
	if err != nil {
		api.Fail(c, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		api.Fail(c, http.StatusNotFound, "user not found")
		return
	}

	api.OK(c, http.StatusOK, u, "")
}
