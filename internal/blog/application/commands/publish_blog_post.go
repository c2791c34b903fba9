package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/blog/domain"
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// PublishBlogPostCommand publishes a draft post. Publishing an already
// published post succeeds without change.
type PublishBlogPostCommand struct {
	ID string `json:"id"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *PublishBlogPostCommand) CommandName() string { return "blog.PublishBlogPost" }

// Alias implements application.Aliased.
func (c *PublishBlogPostCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *PublishBlogPostCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *PublishBlogPostCommand) IdempotencyKey() string { return c.IdemKey }

// PublishBlogPostHandler handles PublishBlogPostCommand.
type PublishBlogPostHandler struct {
	posts  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewPublishBlogPostHandler creates a PublishBlogPostHandler.
func NewPublishBlogPostHandler(posts domain.Repository, events saga.Dispatcher, logger *slog.Logger) *PublishBlogPostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishBlogPostHandler{posts: posts, events: events, logger: logger}
}

// Handle executes the command.
func (h *PublishBlogPostHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*PublishBlogPostCommand)
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

	alreadyPublished := post.Published
	post.Publish()
	if err := h.posts.Update(ctx, post); err != nil {
		return application.Result{}, err
	}

	if !alreadyPublished {
		h.events.Emit(ctx, saga.EmitOptions{
			Entity:      "BlogPost",
			Action:      "Published",
			AggregateID: post.ID.String(),
			Alias:       cmd.DBAlias,
			Payload: map[string]any{
				"id":        post.ID.String(),
				"title":     post.Title,
				"author_id": post.AuthorID.String(),
			},
		})
	}

	h.logger.Info("blog post published", "post_id", post.ID)
	return application.OK(ToDTO(post), "Blog post published"), nil
}
