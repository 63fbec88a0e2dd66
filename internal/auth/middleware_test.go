package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestMiddleware_MissingOrMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		authHeader string
	}{
		{"empty header", ""},
		{"wrong scheme", "Token abc"},
		{"empty token", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			c.Request = req

			Middleware(testAuthenticator())(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authn := testAuthenticator()

	uid := primitive.NewObjectID()
	access, _, err := authn.GenerateTokens(uid, "driver@example.com", RoleDriver)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	c.Request = req

	Middleware(authn)(c)

	assert.Equal(t, http.StatusOK, w.Code)
	p, ok := GetPrincipal(c)
	require.True(t, ok)
	assert.Equal(t, uid, p.UserID)
	assert.Equal(t, RoleDriver, p.Role)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		principalRole  Role
		requiredRole   Role
		expectedStatus int
	}{
		{"matching role", RoleDriver, RoleDriver, http.StatusOK},
		{"both satisfies driver-only", RoleBoth, RoleDriver, http.StatusOK},
		{"mismatched role", RolePassenger, RoleDriver, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Set(principalKey, Principal{UserID: primitive.NewObjectID(), Role: tt.principalRole})

			RequireRole(tt.requiredRole)(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	RequireRole(RoleDriver)(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
