package queries

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// DefaultPageSize caps list results when no page size is given.
const DefaultPageSize = 20

// MaxPageSize bounds how many posts one page may return.
const MaxPageSize = 100

// ListBlogPostsQuery fetches a page of posts, optionally filtered by author.
type ListBlogPostsQuery struct {
	AuthorID string `json:"author_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`

	Anonymous bool `json:"allow_anonymous"`
}

// QueryName implements application.Query.
func (q *ListBlogPostsQuery) QueryName() string { return "blog.ListBlogPosts" }

// AllowAnonymous implements application.AnonymousAllowed.
func (q *ListBlogPostsQuery) AllowAnonymous() bool { return q.Anonymous }

// ListBlogPostsHandler handles ListBlogPostsQuery.
type ListBlogPostsHandler struct {
	posts domain.Repository
}

// NewListBlogPostsHandler creates a ListBlogPostsHandler.
func NewListBlogPostsHandler(posts domain.Repository) *ListBlogPostsHandler {
	return &ListBlogPostsHandler{posts: posts}
}

// Handle executes the query.
func (h *ListBlogPostsHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	q, ok := req.(*ListBlogPostsQuery)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	var authorID uuid.UUID
	if q.AuthorID != "" {
		parsed, err := uuid.Parse(q.AuthorID)
		if err != nil {
			return application.Result{}, application.NewValidation("author_id must be a valid UUID").WithCause(err)
		}
		authorID = parsed
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

	posts, total, err := h.posts.List(ctx, authorID, page, pageSize)
	if err != nil {
		return application.Result{}, err
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, toView(p))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return application.OKPage(views, "", application.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}), nil
}
