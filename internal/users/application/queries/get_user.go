// Package queries contains the user read operations.
package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// UserView is the read-side shape of a user.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(u *domain.User) UserView {
	return UserView{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		UserType:  string(u.UserType),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// GetUserQuery fetches one user by id.
type GetUserQuery struct {
	ID string `json:"id"`

	Anonymous bool `json:"allow_anonymous"`
}

// QueryName implements application.Query.
func (q *GetUserQuery) QueryName() string { return "users.GetUser" }

// AllowAnonymous implements application.AnonymousAllowed.
func (q *GetUserQuery) AllowAnonymous() bool { return q.Anonymous }

// GetUserHandler handles GetUserQuery.
type GetUserHandler struct {
	users domain.Repository
}

// NewGetUserHandler creates a GetUserHandler.
func NewGetUserHandler(users domain.Repository) *GetUserHandler {
	return &GetUserHandler{users: users}
}

// Handle executes the query.
func (h *GetUserHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	q, ok := req.(*GetUserQuery)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	id, err := uuid.Parse(q.ID)
	if err != nil {
		return application.Result{}, application.NewValidation("id must be a valid UUID").WithCause(err)
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return application.Result{}, err
	}
	return application.OK(toView(user), ""), nil
}
