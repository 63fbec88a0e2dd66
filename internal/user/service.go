package user

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/auth"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service implements the register/login/refresh surface spec.md §6
// carves out for the `Authenticator` boundary: everything else
// (OTP, OAuth, Firebase) is an explicit non-goal.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, *User, error)
	GetByID(ctx context.Context, userID primitive.ObjectID) (*User, error)
	SoftDelete(ctx context.Context, userID primitive.ObjectID) error
}

type service struct {
	repo  Repository
	authn *auth.JWTAuthenticator
}

func NewService(repo Repository, authn *auth.JWTAuthenticator) Service {
	return &service{repo: repo, authn: authn}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	u := &User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
	}
	u, err = s.repo.Create(ctx, u)
	if err != nil {
		return nil, "", "", err
	}

	accessToken, refreshToken, err := s.authn.GenerateTokens(u.ID, u.Email, auth.Role(u.Role))
	if err != nil {
		return nil, "", "", err
	}

	return u, accessToken, refreshToken, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	u, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.authn.GenerateTokens(u.ID, u.Email, auth.Role(u.Role))
	if err != nil {
		return nil, "", "", err
	}

	return u, accessToken, refreshToken, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, *User, error) {
	newAccess, principal, err := s.authn.RefreshAccessToken(refreshToken)
	if err != nil {
		return "", nil, err
	}

	u, err := s.repo.FindByID(ctx, principal.UserID)
	if err != nil {
		return "", nil, ErrUserNotFound
	}

	return newAccess, u, nil
}

func (s *service) GetByID(ctx context.Context, userID primitive.ObjectID) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) SoftDelete(ctx context.Context, userID primitive.ObjectID) error {
	return s.repo.SoftDelete(ctx, userID)
}
