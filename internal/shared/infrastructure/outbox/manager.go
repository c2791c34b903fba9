package outbox

import (
	"sync"

	"github.com/felixgeelhaar/conduit/internal/shared/application/saga"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
)

// Manager hands out outbox repositories bound to datastore aliases, so an
// event raised in any registered datastore lands in that datastore's own
// outbox table and shares its transaction.
type Manager struct {
	db *database.Manager

	mu    sync.Mutex
	repos map[string]*SQLRepository
}

// NewManager creates a Manager over the registered datastore connections.
func NewManager(db *database.Manager) *Manager {
	return &Manager{db: db, repos: make(map[string]*SQLRepository)}
}

// Using returns an outbox writer bound to the given alias.
func (m *Manager) Using(alias string) saga.OutboxWriter {
	return m.repo(alias)
}

// For returns the full repository for an alias, as used by the relay
// processor.
func (m *Manager) For(alias string) Repository {
	return m.repo(alias)
}

func (m *Manager) repo(alias string) *SQLRepository {
	if alias == "" {
		alias = database.DefaultAlias
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[alias]
	if !ok {
		repo = NewSQLRepository(m.db, alias)
		m.repos[alias] = repo
	}
	return repo
}
