package chat

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	Create(ctx context.Context, m *Message) (*Message, error)
	ListByThread(ctx context.Context, kind ThreadKind, threadID primitive.ObjectID, page, limit int) ([]Message, int64, error)
}
