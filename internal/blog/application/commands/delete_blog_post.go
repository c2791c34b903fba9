package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// DeleteBlogPostCommand removes a post.
type DeleteBlogPostCommand struct {
	ID string `json:"id"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *DeleteBlogPostCommand) CommandName() string { return "blog.DeleteBlogPost" }

// Alias implements application.Aliased.
func (c *DeleteBlogPostCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *DeleteBlogPostCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *DeleteBlogPostCommand) IdempotencyKey() string { return c.IdemKey }

// DeleteBlogPostHandler handles DeleteBlogPostCommand.
type DeleteBlogPostHandler struct {
	posts  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewDeleteBlogPostHandler creates a DeleteBlogPostHandler.
func NewDeleteBlogPostHandler(posts domain.Repository, events saga.Dispatcher, logger *slog.Logger) *DeleteBlogPostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteBlogPostHandler{posts: posts, events: events, logger: logger}
}

// Handle executes the command.
func (h *DeleteBlogPostHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*DeleteBlogPostCommand)
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

	if err := h.posts.Delete(ctx, id); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "BlogPost",
		Action:      "Deleted",
		AggregateID: id.String(),
		Alias:       cmd.DBAlias,
		Payload:     map[string]any{"id": id.String()},
	})

	h.logger.Info("blog post deleted", "post_id", id)
	return application.OK(nil, "Blog post deleted"), nil
}
