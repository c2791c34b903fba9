package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for blog posts. Implementations
// join any transaction open in the context.
type Repository interface {
	Create(ctx context.Context, post *BlogPost) error
	Update(ctx context.Context, post *BlogPost) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*BlogPost, error)
	List(ctx context.Context, authorID uuid.UUID, page, pageSize int) ([]*BlogPost, int64, error)
	DeleteByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error)
}
