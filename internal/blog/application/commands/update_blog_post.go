package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// UpdateBlogPostCommand changes the title and content of a post. Empty
// fields are left untouched.
type UpdateBlogPostCommand struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *UpdateBlogPostCommand) CommandName() string { return "blog.UpdateBlogPost" }

// Alias implements application.Aliased.
func (c *UpdateBlogPostCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *UpdateBlogPostCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *UpdateBlogPostCommand) IdempotencyKey() string { return c.IdemKey }

// UpdateBlogPostHandler handles UpdateBlogPostCommand.
type UpdateBlogPostHandler struct {
	posts  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewUpdateBlogPostHandler creates an UpdateBlogPostHandler.
func NewUpdateBlogPostHandler(posts domain.Repository, events saga.Dispatcher, logger *slog.Logger) *UpdateBlogPostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateBlogPostHandler{posts: posts, events: events, logger: logger}
}

// Handle executes the command.
func (h *UpdateBlogPostHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*UpdateBlogPostCommand)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	if err := application.Ensure(cmd.ID != "", "id is required"); err != nil {
		return application.Result{}, err
	}
	id, err := parseOptionalID(cmd.ID)
	if err != nil {
		return application.Result{}, err
	}

	post, err := h.posts.GetByID(ctx, id)
	if err != nil {
		return application.Result{}, err
	}

	if title := strings.TrimSpace(cmd.Title); title != "" {
		post.Title = title
	}
	if cmd.Content != "" {
		post.Content = cmd.Content
	}
	post.Touch()

	if err := h.posts.Update(ctx, post); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "BlogPost",
		Action:      "Updated",
		AggregateID: post.ID.String(),
		Alias:       cmd.DBAlias,
		Payload: map[string]any{
			"id":    post.ID.String(),
			"title": post.Title,
		},
	})

	h.logger.Info("blog post updated", "post_id", post.ID)
	return application.OK(ToDTO(post), "Blog post updated"), nil
}
