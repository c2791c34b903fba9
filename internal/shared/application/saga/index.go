package saga

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// CommandMeta describes one routable command: its qualified name, the
// payload keys its constructor accepts, and the constructor itself.
type CommandMeta struct {
	// Name qualifies the command, e.g. "users.CreateUser".
	Name string
	// Params is the set of constructor argument names.
	Params map[string]bool
	// New builds the command from a filtered argument map.
	New func(args map[string]any) (application.Command, error)
}

// NewCommandMeta creates CommandMeta from a parameter name list.
func NewCommandMeta(name string, params []string, ctor func(args map[string]any) (application.Command, error)) CommandMeta {
	set := make(map[string]bool, len(params))
	for _, p := range params {
		set[p] = true
	}
	return CommandMeta{Name: name, Params: set, New: ctor}
}

// Registrar receives command registrations during an index build.
type Registrar interface {
	Register(entity, action string, meta CommandMeta)
}

// Provider contributes a command root's registrations to the index. Each
// command package exposes one provider; the set of providers is the
// static-build equivalent of scanning a code tree.
type Provider func(reg Registrar)

type indexKey struct {
	entity string
	action string
}

// Index is the lazily built, thread-safe registry mapping normalized
// (entity, action) pairs to command metadata. The first goroutine to
// observe an unbuilt index performs the build under the lock; others block
// until it completes and then read the finished index. No reader ever
// observes a partial build.
type Index struct {
	mu        sync.RWMutex
	providers []Provider
	built     bool
	byKey     map[indexKey]*CommandMeta
	byName    map[string]*CommandMeta
}

// NewIndex creates an index over the given providers.
func NewIndex(providers ...Provider) *Index {
	return &Index{providers: providers}
}

// AddProvider appends a provider and invalidates any completed build.
func (x *Index) AddProvider(p Provider) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.providers = append(x.providers, p)
	x.built = false
}

// Resolve returns the metadata registered for a normalized (entity, action)
// pair, building the index first if needed.
func (x *Index) Resolve(entity, action string) (*CommandMeta, bool) {
	x.ensureBuilt()
	x.mu.RLock()
	defer x.mu.RUnlock()
	meta, ok := x.byKey[indexKey{entity: normalize(entity), action: normalize(action)}]
	return meta, ok
}

// ResolveName returns the metadata for a qualified command name, bypassing
// (entity, action) routing.
func (x *Index) ResolveName(name string) (*CommandMeta, bool) {
	x.ensureBuilt()
	x.mu.RLock()
	defer x.mu.RUnlock()
	meta, ok := x.byName[name]
	return meta, ok
}

// Contains reports whether a normalized (entity, action) pair is indexed.
func (x *Index) Contains(entity, action string) bool {
	_, ok := x.Resolve(entity, action)
	return ok
}

// Size returns the number of indexed commands.
func (x *Index) Size() int {
	x.ensureBuilt()
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byKey)
}

// Refresh discards the built index and rebuilds it from the providers.
// Intended for use after registration changes at runtime.
func (x *Index) Refresh() {
	x.mu.Lock()
	x.built = false
	x.byKey = nil
	x.byName = nil
	x.mu.Unlock()
	x.ensureBuilt()
}

func (x *Index) ensureBuilt() {
	x.mu.RLock()
	built := x.built
	x.mu.RUnlock()
	if built {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.built {
		return
	}
	builder := &indexBuilder{
		byKey:  make(map[indexKey]*CommandMeta),
		byName: make(map[string]*CommandMeta),
	}
	for _, p := range x.providers {
		p(builder)
	}
	x.byKey = builder.byKey
	x.byName = builder.byName
	x.built = true
}

type indexBuilder struct {
	byKey  map[indexKey]*CommandMeta
	byName map[string]*CommandMeta
}

// Register implements Registrar.
func (b *indexBuilder) Register(entity, action string, meta CommandMeta) {
	m := meta
	b.byKey[indexKey{entity: normalize(entity), action: normalize(action)}] = &m
	if m.Name != "" {
		b.byName[m.Name] = &m
	}
}

// DecodeArgs populates a command struct from an argument map via its JSON
// tags. Keys were already filtered to the constructor's parameter set.
func DecodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode command args: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode command args: %w", err)
	}
	return nil
}
