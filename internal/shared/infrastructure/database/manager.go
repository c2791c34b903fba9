package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownAlias is returned when an alias has no registered connection.
var ErrUnknownAlias = errors.New("unknown datastore alias")

// Manager is the registry of datastore connections keyed by alias.
// It answers which alias currently has an open transaction in a context,
// which is how post-commit scheduling infers its target scope.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]Connection
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{connections: make(map[string]Connection)}
}

// Register binds a connection to an alias. Rebinding an alias is a wiring
// bug and fails.
func (m *Manager) Register(alias string, conn Connection) error {
	if alias == "" {
		alias = DefaultAlias
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.connections[alias]; exists {
		return fmt.Errorf("datastore alias %q already registered", alias)
	}
	m.connections[alias] = conn
	return nil
}

// Get returns the connection registered under alias.
func (m *Manager) Get(alias string) (Connection, error) {
	if alias == "" {
		alias = DefaultAlias
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	return conn, nil
}

// Aliases returns all registered aliases in sorted order.
func (m *Manager) Aliases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	aliases := make([]string, 0, len(m.connections))
	for alias := range m.connections {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// InTransaction reports whether the context carries an open transaction for
// the given alias.
func (m *Manager) InTransaction(ctx context.Context, alias string) bool {
	_, ok := TxInfoFromContext(ctx, alias)
	return ok
}

// ActiveAlias returns the alias whose transaction is currently open in the
// context. The default alias wins when it is active; otherwise the first
// active alias in sorted order is returned. With no active transaction the
// default alias is returned.
func (m *Manager) ActiveAlias(ctx context.Context) string {
	if m.InTransaction(ctx, DefaultAlias) {
		return DefaultAlias
	}
	for _, alias := range m.Aliases() {
		if m.InTransaction(ctx, alias) {
			return alias
		}
	}
	return DefaultAlias
}

// OnCommit schedules fn on the transaction open for alias; see the
// package-level OnCommit. Method form satisfies the saga CommitScheduler
// contract.
func (m *Manager) OnCommit(ctx context.Context, alias string, fn func(ctx context.Context)) {
	OnCommit(ctx, alias, fn)
}

// CloseAll closes every registered connection, keeping the first error.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for alias, conn := range m.connections {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %q: %w", alias, err)
		}
		delete(m.connections, alias)
	}
	return firstErr
}
