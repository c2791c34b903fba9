package commands

import (
	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
)

// Discovery contributes this package's commands to the saga command index.
func Discovery() saga.Provider {
	return func(reg saga.Registrar) {
		reg.Register("BlogPost", "Create", saga.NewCommandMeta(
			"blog.CreateBlogPost",
			[]string{"id", "title", "content", "author_id", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &CreateBlogPostCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
		reg.Register("BlogPost", "Update", saga.NewCommandMeta(
			"blog.UpdateBlogPost",
			[]string{"id", "title", "content", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &UpdateBlogPostCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
		reg.Register("BlogPost", "Delete", saga.NewCommandMeta(
			"blog.DeleteBlogPost",
			[]string{"id", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &DeleteBlogPostCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
		reg.Register("BlogPost", "Publish", saga.NewCommandMeta(
			"blog.PublishBlogPost",
			[]string{"id", "allow_anonymous", "db_alias", "idempotency_key"},
			func(args map[string]any) (application.Command, error) {
				cmd := &PublishBlogPostCommand{}
				if err := saga.DecodeArgs(args, cmd); err != nil {
					return nil, err
				}
				return cmd, nil
			},
		))
	}
}
