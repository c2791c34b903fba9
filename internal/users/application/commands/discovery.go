package commands

import (
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// Discovery contributes this package's commands to the saga command index.
// The (entity, action) keys mirror the command type names, which is what
// event-type tokenization resolves against.
func Discovery() saga.Provider {
	return func(reg saga.Registrar) {
		reg.Register("User", "Create", saga.NewCommandMeta(
			"users.CreateUser",
			[]string{"id", "username", "email", "user_type", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &CreateUserCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
		reg.Register("User", "Update", saga.NewCommandMeta(
			"users.UpdateUser",
			[]string{"id", "username", "email", "user_type", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &UpdateUserCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
		reg.Register("User", "Delete", saga.NewCommandMeta(
			"users.DeleteUser",
			[]string{"id", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &DeleteUserCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
	}
}
