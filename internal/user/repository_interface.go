package user

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateConnectedAccount(ctx context.Context, id primitive.ObjectID, accountID string) error
	ApplyRating(ctx context.Context, id primitive.ObjectID, stars int) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}
