package saga

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// CommandSender dispatches a command through the full request pipeline.
type CommandSender interface {
	Send(ctx context.Context, req any) (application.Result, error)
}

// OverrideFactory builds a command directly from an event, bypassing
// constructor-parameter inference.
type OverrideFactory func(evt *Event) (application.Command, error)

// GenericCrudSaga turns a committed event into a new command dispatched
// back through the mediator, without a hand-written mapping table. Routing
// relies on the command index built from the naming convention
// action-name + entity-name ("Create" + "User" -> "CreateUser").
type GenericCrudSaga struct {
	sender CommandSender
	index  *Index
	routes map[indexKey]OverrideFactory
	logger *slog.Logger
}

// NewGenericCrudSaga creates a GenericCrudSaga over a command index.
func NewGenericCrudSaga(sender CommandSender, index *Index, logger *slog.Logger) *GenericCrudSaga {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenericCrudSaga{
		sender: sender,
		index:  index,
		routes: make(map[indexKey]OverrideFactory),
		logger: logger,
	}
}

// RegisterRoute installs a manual override for a normalized
// (entity, action) pair. Overrides always win over index construction.
func (s *GenericCrudSaga) RegisterRoute(entity, action string, factory OverrideFactory) {
	s.routes[indexKey{entity: normalize(entity), action: normalize(action)}] = factory
}

// Process implements Saga.
func (s *GenericCrudSaga) Process(ctx context.Context, evt *Event) error {
	// 1) An explicit qualified command name always wins.
	if evt.Command != "" {
		meta, ok := s.index.ResolveName(evt.Command)
		if !ok {
			s.logger.Warn("command name not found", "command", evt.Command)
			return nil
		}
		return s.construct(ctx, meta, evt)
	}

	entity, action := s.routeEvent(evt)
	if entity == "" || action == "" {
		s.logger.Info("event not routable, skipping",
			"entity", evt.Entity,
			"action", evt.Action,
			"event_type", evt.EventType,
		)
		return nil
	}

	// 2) Manual overrides win over index-based construction. Their own
	// failures are isolated and never abort the saga chain.
	if factory, ok := s.routes[indexKey{entity: normalize(entity), action: normalize(action)}]; ok {
		cmd, err := factory(evt)
		if err != nil {
			s.logger.Error("override factory failed", "entity", entity, "action", action, "error", err)
			return nil
		}
		s.logger.Info("dispatching command", "command", cmd.CommandName(), "source", "override")
		_, err = s.sender.Send(ctx, cmd)
		if err != nil {
			s.logger.Error("override dispatch failed", "entity", entity, "action", action, "error", err)
		}
		return nil
	}

	meta, ok := s.index.Resolve(entity, action)
	if !ok {
		s.logger.Info("no command for event, skipping", "entity", entity, "action", action)
		return nil
	}
	return s.construct(ctx, meta, evt)
}

// routeEvent resolves the (entity, action) pair of an event: explicit
// fields first, then event-type tokenization trying every split point from
// the end backward so the longest plausible action suffix wins.
func (s *GenericCrudSaga) routeEvent(evt *Event) (string, string) {
	if evt.Entity != "" && evt.Action != "" {
		return evt.Entity, evt.Action
	}

	et := strings.TrimSpace(evt.EventType)
	if et == "" {
		return "", ""
	}

	tokens := splitCamel(et)
	if len(tokens) < 2 {
		return "", ""
	}
	for i := 1; i < len(tokens); i++ {
		prefix := strings.Join(tokens[:len(tokens)-i], "")
		suffix := strings.Join(tokens[len(tokens)-i:], "")
		if s.index.Contains(prefix, suffix) {
			return prefix, suffix
		}
		// Event types written like command names ("CreateBlogPost") put
		// the action first; accept the reversed pair too.
		if s.index.Contains(suffix, prefix) {
			return suffix, prefix
		}
	}
	return "", ""
}

func (s *GenericCrudSaga) construct(ctx context.Context, meta *CommandMeta, evt *Event) error {
	args := s.buildArgs(meta, evt)

	cmd, err := meta.New(args)
	if err != nil {
		s.logger.Warn("failed constructing command",
			"command", meta.Name,
			"args", argKeys(args),
			"error", err,
		)
		return nil
	}

	s.logger.Info("dispatching command", "command", cmd.CommandName(), "source", "index")
	if _, err := s.sender.Send(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch %s: %w", meta.Name, err)
	}
	return nil
}

// buildArgs starts from the event payload, defaults the helper parameters
// the constructor accepts, and drops every key it does not.
func (s *GenericCrudSaga) buildArgs(meta *CommandMeta, evt *Event) map[string]any {
	args := make(map[string]any, len(evt.Payload)+3)
	for k, v := range evt.Payload {
		args[k] = v
	}

	if meta.Params["allow_anonymous"] {
		if _, present := args["allow_anonymous"]; !present {
			args["allow_anonymous"] = true
		}
	}
	if evt.Alias != "" && meta.Params["db_alias"] {
		if _, present := args["db_alias"]; !present {
			args["db_alias"] = evt.Alias
		}
	}
	if evt.AggregateID != "" && meta.Params["id"] {
		if _, present := args["id"]; !present {
			args["id"] = evt.AggregateID
		}
	}

	for k := range args {
		if !meta.Params[k] {
			delete(args, k)
		}
	}
	return args
}

func argKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
