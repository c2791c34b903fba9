// Package commands contains the blog write operations.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// PostDTO is the wire shape of a post returned by write operations.
type PostDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"author_id"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToDTO maps a post aggregate to its wire shape.
func ToDTO(p *domain.BlogPost) PostDTO {
	return PostDTO{
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

// CreateBlogPostCommand creates a draft post.
type CreateBlogPostCommand struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	AuthorID string `json:"author_id"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *CreateBlogPostCommand) CommandName() string { return "blog.CreateBlogPost" }

// Alias implements application.Aliased.
func (c *CreateBlogPostCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *CreateBlogPostCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *CreateBlogPostCommand) IdempotencyKey() string { return c.IdemKey }

// CreateBlogPostHandler handles CreateBlogPostCommand.
type CreateBlogPostHandler struct {
	posts  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewCreateBlogPostHandler creates a CreateBlogPostHandler.
func NewCreateBlogPostHandler(posts domain.Repository, events saga.Dispatcher, logger *slog.Logger) *CreateBlogPostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateBlogPostHandler{posts: posts, events: events, logger: logger}
}

// Handle executes the command.
func (h *CreateBlogPostHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*CreateBlogPostCommand)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	if err := application.Ensure(strings.TrimSpace(cmd.Title) != "", "title is required"); err != nil {
		return application.Result{}, err
	}
	authorID, err := uuid.Parse(cmd.AuthorID)
	if err != nil {
		return application.Result{}, application.NewValidation("author_id must be a valid UUID").WithCause(err)
	}
	id, err := parseOptionalID(cmd.ID)
	if err != nil {
		return application.Result{}, err
	}

	post := domain.NewBlogPost(id, strings.TrimSpace(cmd.Title), cmd.Content, authorID)
	if err := h.posts.Create(ctx, post); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "BlogPost",
		Action:      "Created",
		AggregateID: post.ID.String(),
		Alias:       cmd.DBAlias,
		Payload: map[string]any{
			"id":        post.ID.String(),
			"title":     post.Title,
			"author_id": post.AuthorID.String(),
		},
	})

	h.logger.Info("blog post created", "post_id", post.ID, "author_id", post.AuthorID)
	return application.OK(ToDTO(post), "Blog post created"), nil
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, application.NewValidation("id must be a valid UUID").WithCause(err)
	}
	return id, nil
}
