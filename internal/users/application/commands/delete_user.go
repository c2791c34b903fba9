package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// DeleteUserCommand removes a user account.
type DeleteUserCommand struct {
	ID string `json:"id"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *DeleteUserCommand) CommandName() string { return "users.DeleteUser" }

// Alias implements application.Aliased.
func (c *DeleteUserCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *DeleteUserCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *DeleteUserCommand) IdempotencyKey() string { return c.IdemKey }

// DeleteUserHandler handles DeleteUserCommand.
type DeleteUserHandler struct {
	users  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewDeleteUserHandler creates a DeleteUserHandler.
func NewDeleteUserHandler(users domain.Repository, events saga.Dispatcher, logger *slog.Logger) *DeleteUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteUserHandler{users: users, events: events, logger: logger}
}

// Handle executes the command.
func (h *DeleteUserHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*DeleteUserCommand)
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

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return application.Result{}, err
	}
	if err := h.users.Delete(ctx, id); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "User",
		Action:      "Deleted",
		AggregateID: id.String(),
		Alias:       cmd.DBAlias,
		Payload: map[string]any{
			"id":       id.String(),
			"username": user.Username,
		},
	})

	h.logger.Info("user deleted", "user_id", id)
	return application.OK(nil, "User deleted"), nil
}
