package queries

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// DefaultPageSize caps list results when no page size is given.
const DefaultPageSize = 20

// MaxPageSize bounds how many users one page may return.
const MaxPageSize = 100

// ListUsersQuery fetches a page of users ordered by creation time.
type ListUsersQuery struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`

	Anonymous bool `json:"allow_anonymous"`
}

// QueryName implements application.Query.
func (q *ListUsersQuery) QueryName() string { return "users.ListUsers" }

// AllowAnonymous implements application.AnonymousAllowed.
func (q *ListUsersQuery) AllowAnonymous() bool { return q.Anonymous }

// ListUsersHandler handles ListUsersQuery.
type ListUsersHandler struct {
	users domain.Repository
}

// NewListUsersHandler creates a ListUsersHandler.
func NewListUsersHandler(users domain.Repository) *ListUsersHandler {
	return &ListUsersHandler{users: users}
}

// Handle executes the query.
func (h *ListUsersHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	q, ok := req.(*ListUsersQuery)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	users, total, err := h.users.List(ctx, page, pageSize)
	if err != nil {
		return application.Result{}, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return application.OKPage(views, "", application.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}), nil
}
