// Package auth is the thin glue spec.md §1 carves out of the core:
// full authentication (OTP, OAuth, Firebase phone verification) is an
// external collaborator. This package only issues/verifies the JWTs
// that carry a Principal across the wire, and exposes that as an
// Authenticator interface so every engine depends on the interface,
// never on JWT mechanics directly.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtIssuer   = "airpool-api"
	jwtAudience = "airpool-users"
)

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrEmptyJWTSecret   = errors.New("jwt secret cannot be empty")
)

// Role mirrors spec.md §3's User.role enum.
type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
	RoleBoth      Role = "both"
)

// Principal is the verified identity an Authenticator hands back.
// Every handler pulls one from the gin context instead of trusting
// raw headers.
type Principal struct {
	UserID primitive.ObjectID
	Email  string
	Role   Role
}

// Authenticator turns a bearer token into a Principal. The HTTP layer
// never parses JWTs itself; it calls this interface.
type Authenticator interface {
	Verify(tokenString string) (Principal, error)
}

type claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTAuthenticator is the default concrete Authenticator: HMAC-signed
// JWTs issued by this same service. It is deliberately the only
// authentication mechanism implemented — OTP/OAuth/Firebase are out of
// scope per spec.md §1.
type JWTAuthenticator struct {
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTAuthenticator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func CheckPassword(hashedPassword, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword)) == nil
}

func (a *JWTAuthenticator) generateToken(userID primitive.ObjectID, email string, role Role, tokenType string, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}

	now := time.Now()
	c := &claims{
		UserID:    userID.Hex(),
		Email:     email,
		Role:      string(role),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Audience:  []string{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// GenerateTokens mints a fresh access+refresh pair for a user, used
// right after register/login resolve a principal.
func (a *JWTAuthenticator) GenerateTokens(userID primitive.ObjectID, email string, role Role) (accessToken, refreshToken string, err error) {
	accessToken, err = a.generateToken(userID, email, role, "access", a.accessSecret, a.accessTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = a.generateToken(userID, email, role, "refresh", a.refreshSecret, a.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (a *JWTAuthenticator) parse(tokenString, secret string) (*claims, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// Verify implements Authenticator using the access-token secret.
func (a *JWTAuthenticator) Verify(tokenString string) (Principal, error) {
	c, err := a.parse(tokenString, a.accessSecret)
	if err != nil {
		return Principal{}, err
	}
	if c.TokenType != "access" {
		return Principal{}, ErrInvalidTokenType
	}
	uid, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: uid, Email: c.Email, Role: Role(c.Role)}, nil
}

// RefreshAccessToken validates a refresh token and mints a new access
// token for the same principal.
func (a *JWTAuthenticator) RefreshAccessToken(refreshToken string) (string, Principal, error) {
	c, err := a.parse(refreshToken, a.refreshSecret)
	if err != nil {
		return "", Principal{}, err
	}
	if c.TokenType != "refresh" {
		return "", Principal{}, ErrInvalidTokenType
	}
	uid, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return "", Principal{}, ErrInvalidToken
	}
	p := Principal{UserID: uid, Email: c.Email, Role: Role(c.Role)}
	newAccess, err := a.generateToken(uid, c.Email, p.Role, "access", a.accessSecret, a.accessTTL)
	if err != nil {
		return "", Principal{}, err
	}
	return newAccess, p, nil
}
