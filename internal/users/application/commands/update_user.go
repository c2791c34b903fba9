package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// UpdateUserCommand changes the mutable fields of a user. Empty fields are
// left untouched.
type UpdateUserCommand struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *UpdateUserCommand) CommandName() string { return "users.UpdateUser" }

// Alias implements application.Aliased.
func (c *UpdateUserCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *UpdateUserCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *UpdateUserCommand) IdempotencyKey() string { return c.IdemKey }

// UpdateUserHandler handles UpdateUserCommand.
type UpdateUserHandler struct {
	users  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewUpdateUserHandler creates an UpdateUserHandler.
func NewUpdateUserHandler(users domain.Repository, events saga.Dispatcher, logger *slog.Logger) *UpdateUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateUserHandler{users: users, events: events, logger: logger}
}

// Handle executes the command.
func (h *UpdateUserHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*UpdateUserCommand)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	id, err := parseOptionalID(cmd.ID)
	if err != nil {
		return application.Result{}, err
	}
	if err := application.Ensure(cmd.ID != "", "id is required"); err != nil {
		return application.Result{}, err
	}

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return application.Result{}, err
	}

	if username := strings.TrimSpace(cmd.Username); username != "" {
		user.Username = username
	}
	if email := strings.TrimSpace(cmd.Email); email != "" {
		if err := application.Ensure(strings.Contains(email, "@"), "a valid email is required"); err != nil {
			return application.Result{}, err
		}
		user.Email = email
	}
	if cmd.UserType != "" {
		userType := domain.UserType(cmd.UserType)
		if !userType.IsValid() {
			return application.Result{}, application.NewValidation("unknown user type").
				WithDetails(map[string]any{"user_type": cmd.UserType})
		}
		user.UserType = userType
	}
	user.Touch()

	if err := h.users.Update(ctx, user); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "User",
		Action:      "Updated",
		AggregateID: user.ID.String(),
		Alias:       cmd.DBAlias,
		Payload: map[string]any{
			"id":        user.ID.String(),
			"username":  user.Username,
			"email":     user.Email,
			"user_type": string(user.UserType),
		},
	})

	h.logger.Info("user updated", "user_id", user.ID)
	return application.OK(ToDTO(user), "User updated"), nil
}
