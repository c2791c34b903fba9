// Package mediator routes typed requests to their single registered handler
// and wraps every dispatch in an ordered chain of cross-cutting behaviors.
package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// Handler executes a single request type. Handlers are stateless per call
// and own no transaction logic.
type Handler interface {
	Handle(ctx context.Context, req any) (application.Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req any) (application.Result, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req any) (application.Result, error) {
	return f(ctx, req)
}

// Factory produces a handler instance. The mediator caches the first
// instance per request type for its own lifetime.
type Factory func() Handler

// Next represents the rest of the pipeline, terminating in the handler.
type Next func(ctx context.Context) (application.Result, error)

// Behavior is a cross-cutting pipeline stage. It may short-circuit (never
// call next), call next exactly once, or wrap its result or error.
type Behavior interface {
	Handle(ctx context.Context, req any, next Next) (application.Result, error)
}

// Outcome is the terminal value of an asynchronous dispatch.
type Outcome struct {
	Result application.Result
	Err    error
}

// Mediator resolves requests to handlers and executes them through the
// behavior pipeline. Behaviors run outermost-first in registration order.
type Mediator struct {
	mu        sync.RWMutex
	factories map[reflect.Type]Factory
	cache     map[reflect.Type]Handler
	behaviors []Behavior
	logger    *slog.Logger
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithBehaviors appends behaviors in execution order (first is outermost).
func WithBehaviors(behaviors ...Behavior) Option {
	return func(m *Mediator) { m.behaviors = append(m.behaviors, behaviors...) }
}

// WithLogger sets the mediator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mediator) { m.logger = logger }
}

// New creates a Mediator.
func New(opts ...Option) *Mediator {
	m := &Mediator{
		factories: make(map[reflect.Type]Factory),
		cache:     make(map[reflect.Type]Handler),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register binds a handler factory to the concrete type of sample.
// Registering a second factory for the same type is a wiring bug and fails.
func (m *Mediator) Register(sample any, factory Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := reflect.TypeOf(sample)
	if _, exists := m.factories[t]; exists {
		return fmt.Errorf("duplicate handler registration for %s", t.String())
	}
	m.factories[t] = factory
	return nil
}

// MustRegister is Register that panics on duplicate registration.
// Intended for startup wiring where a duplicate is fatal.
func (m *Mediator) MustRegister(sample any, factory Factory) {
	if err := m.Register(sample, factory); err != nil {
		panic(err)
	}
}

// Send dispatches a request through the behavior pipeline and blocks until
// the handler returns.
func (m *Mediator) Send(ctx context.Context, req any) (application.Result, error) {
	handler, err := m.resolve(req)
	if err != nil {
		return application.Result{}, err
	}
	return m.execute(ctx, req, handler)
}

// SendAsync dispatches a request on its own goroutine and returns a channel
// that yields exactly one Outcome. It shares handler and behavior
// registration with Send; the pipeline semantics are identical.
func (m *Mediator) SendAsync(ctx context.Context, req any) <-chan Outcome {
	out := make(chan Outcome, 1)

	handler, err := m.resolve(req)
	if err != nil {
		out <- Outcome{Err: err}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		res, err := m.execute(ctx, req, handler)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

func (m *Mediator) execute(ctx context.Context, req any, handler Handler) (application.Result, error) {
	next := Next(func(ctx context.Context) (application.Result, error) {
		return handler.Handle(ctx, req)
	})
	// Compose so the first registered behavior runs outermost.
	for i := len(m.behaviors) - 1; i >= 0; i-- {
		b := m.behaviors[i]
		inner := next
		next = func(ctx context.Context) (application.Result, error) {
			return b.Handle(ctx, req, inner)
		}
	}
	return next(ctx)
}

func (m *Mediator) resolve(req any) (Handler, error) {
	t := reflect.TypeOf(req)

	m.mu.RLock()
	if h, ok := m.cache[t]; ok {
		m.mu.RUnlock()
		return h, nil
	}
	factory, ok := m.factories[t]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for %s; registered: [%s]", t.String(), m.registeredNames())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.cache[t]; ok {
		return h, nil
	}
	h := factory()
	m.cache[t] = h
	return h, nil
}

func (m *Mediator) registeredNames() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.factories))
	for t := range m.factories {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
