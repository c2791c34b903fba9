package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/conduit/internal/app"
	"github.com/felixgeelhaar/conduit/internal/shared/application/mediator"
	"github.com/felixgeelhaar/conduit/pkg/config"
)

func newRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "conduit",
		Short:         "Command dispatch and event propagation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(cfg, logger))
	root.AddCommand(newDispatchCmd(cfg, logger))
	return root
}

// newServeCmd runs the outbox relay until interrupted.
func newServeCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			container, err := app.NewContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			if cfg.OutboxProcessorEnabled {
				if err := container.OutboxProcessor.Start(ctx); err != nil {
					return err
				}
			} else {
				logger.Info("outbox processor disabled")
			}

			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}
}

// newDispatchCmd sends one named command through the pipeline, with
// arguments supplied as a JSON object.
func newDispatchCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "dispatch <command-name>",
		Short: "Dispatch a registered command, e.g. users.CreateUser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			container, err := app.NewContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			meta, ok := container.CommandIndex.ResolveName(args[0])
			if !ok {
				return fmt.Errorf("unknown command %q", args[0])
			}

			cmdArgs := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &cmdArgs); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			request, err := meta.New(cmdArgs)
			if err != nil {
				return fmt.Errorf("build command: %w", err)
			}

			// Dispatch as an authenticated operator.
			ctx = mediator.WithPrincipal(ctx, mediator.Principal{ID: "cli", Name: "cli"})
			result, err := container.Mediator.Send(ctx, request)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "command arguments as a JSON object")
	return cmd
}
