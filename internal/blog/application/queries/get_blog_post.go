// Package queries contains the blog read operations.
package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// PostView is the read-side shape of a blog post.
type PostView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"author_id"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toView(p *domain.BlogPost) PostView {
	return PostView{
		ID:          p.ID.String(),
		Title:       p.Title,
		Content:     p.Content,
		AuthorID:    p.AuthorID.String(),
		Published:   p.Published,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// GetBlogPostQuery fetches one post by id.
type GetBlogPostQuery struct {
	ID string `json:"id"`

	Anonymous bool `json:"allow_anonymous"`
}

// QueryName implements application.Query.
func (q *GetBlogPostQuery) QueryName() string { return "blog.GetBlogPost" }

// AllowAnonymous implements application.AnonymousAllowed.
func (q *GetBlogPostQuery) AllowAnonymous() bool { return q.Anonymous }

// GetBlogPostHandler handles GetBlogPostQuery.
type GetBlogPostHandler struct {
	posts domain.Repository
}

// NewGetBlogPostHandler creates a GetBlogPostHandler.
func NewGetBlogPostHandler(posts domain.Repository) *GetBlogPostHandler {
	return &GetBlogPostHandler{posts: posts}
}

// Handle executes the query.
func (h *GetBlogPostHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	q, ok := req.(*GetBlogPostQuery)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	id, err := uuid.Parse(q.ID)
	if err != nil {
		return application.Result{}, application.NewValidation("id must be a valid UUID").WithCause(err)
	}

	post, err := h.posts.GetByID(ctx, id)
	if err != nil {
		return application.Result{}, err
	}
	return application.OK(toView(post), ""), nil
}
