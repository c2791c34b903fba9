// Package commands contains the user write operations.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// CreateUserCommand creates a new user account.
type CreateUserCommand struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`

	Anonymous bool   `json:"allow_anonymous"`
	DBAlias   string `json:"db_alias"`
	IdemKey   string `json:"idempotency_key"`
}

// CommandName implements application.Command.
func (c *CreateUserCommand) CommandName() string { return "users.CreateUser" }

// Alias implements application.Aliased.
func (c *CreateUserCommand) Alias() string { return c.DBAlias }

// AllowAnonymous implements application.AnonymousAllowed.
func (c *CreateUserCommand) AllowAnonymous() bool { return c.Anonymous }

// IdempotencyKey implements application.Idempotent.
func (c *CreateUserCommand) IdempotencyKey() string { return c.IdemKey }

// CreateUserHandler handles CreateUserCommand.
type CreateUserHandler struct {
	users  domain.Repository
	events saga.Dispatcher
	logger *slog.Logger
}

// NewCreateUserHandler creates a CreateUserHandler.
func NewCreateUserHandler(users domain.Repository, events saga.Dispatcher, logger *slog.Logger) *CreateUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateUserHandler{users: users, events: events, logger: logger}
}

// Handle executes the command.
func (h *CreateUserHandler) Handle(ctx context.Context, req any) (application.Result, error) {
	cmd, ok := req.(*CreateUserCommand)
	if !ok {
		return application.Result{}, fmt.Errorf("unexpected request type %T", req)
	}

	username := strings.TrimSpace(cmd.Username)
	email := strings.TrimSpace(cmd.Email)
	if err := application.Ensure(username != "", "username is required"); err != nil {
		return application.Result{}, err
	}
	if err := application.Ensure(strings.Contains(email, "@"), "a valid email is required"); err != nil {
		return application.Result{}, err
	}
	userType := domain.UserType(cmd.UserType)
	if cmd.UserType != "" && !userType.IsValid() {
		return application.Result{}, application.NewValidation("unknown user type").
			WithDetails(map[string]any{"user_type": cmd.UserType})
	}

	id, err := parseOptionalID(cmd.ID)
	if err != nil {
		return application.Result{}, err
	}

	user := domain.NewUser(id, username, email, userType)
	if err := h.users.Create(ctx, user); err != nil {
		return application.Result{}, err
	}

	h.events.Emit(ctx, saga.EmitOptions{
		Entity:      "User",
		Action:      "Created",
		AggregateID: user.ID.String(),
		Alias:       cmd.DBAlias,
		Payload: map[string]any{
			"id":        user.ID.String(),
			"username":  user.Username,
			"email":     user.Email,
			"user_type": string(user.UserType),
		},
	})

	h.logger.Info("user created", "user_id", user.ID, "username", user.Username)
	return application.OK(ToDTO(user), "User created"), nil
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
