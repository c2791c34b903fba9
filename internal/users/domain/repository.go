package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for users. Implementations join
// any transaction open in the context, so handlers never manage transactions
// themselves.
type Repository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, page, pageSize int) ([]*User, int64, error)
}
