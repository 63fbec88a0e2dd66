package airport

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
)

type Service interface {
	Get(ctx context.Context, id primitive.ObjectID) (*Airport, error)
	Search(ctx context.Context, f SearchFilter, page, limit int) ([]Airport, int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id primitive.ObjectID) (*Airport, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, apperr.NotFound("airport not found")
		}
		return nil, apperr.Transient("failed to load airport", err)
	}
	return a, nil
}

func (s *service) Search(ctx context.Context, f SearchFilter, page, limit int) ([]Airport, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Search(ctx, f, page, limit)
}
