// Package jsonfile implements the JSON file backend for Ledger: one store file
// per entity type, a query builder per entity type, and the registry that
// ties them to a data directory.
package jsonfile

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

var _ types.Ledger = (*Backend)(nil)

// Backend implements types.Ledger with JSON files as storage.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	logger   *zap.Logger

	declared map[string]*types.EntityType // registered through Register
	entities map[string]*types.EntityType // declared plus config entities while attached
	builders map[string]*Builder
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used by the backend, its stores, and builders.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend creates a new JSON file backend.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger:   zap.NewNop(),
		declared: make(map[string]*types.EntityType),
		entities: make(map[string]*types.EntityType),
		builders: make(map[string]*Builder),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach validates config, creates the data directory, registers the entity
// types config declares, and creates an empty store file for every entity
// type that has none.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return &types.StorageIOError{Path: dataDir, Op: "create", Err: err}
	}

	entities := make(map[string]*types.EntityType, len(b.declared)+len(config.Entities))
	for name, et := range b.declared {
		entities[name] = et
	}
	for _, ec := range config.Entities {
		if _, ok := entities[ec.Name]; ok {
			return fmt.Errorf("entity %q: %w", ec.Name, types.ErrEntityExists)
		}
		et, err := ec.EntityType()
		if err != nil {
			return fmt.Errorf("entity %q: %w", ec.Name, err)
		}
		entities[ec.Name] = et
	}

	b.config = config
	builders := make(map[string]*Builder, len(entities))
	for name, et := range entities {
		bl, err := b.newBuilderLocked(et)
		if err != nil {
			return err
		}
		builders[name] = bl
	}

	b.entities = entities
	b.builders = builders
	b.attached = true
	b.logger.Debug("attached",
		zap.String("data_dir", dataDir),
		zap.String("format", config.GetFormat()),
		zap.Int("entities", len(entities)))
	return nil
}

// Detach releases the query builders. Entity types added with Register stay
// registered for the next Attach. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.entities = make(map[string]*types.EntityType)
	b.builders = make(map[string]*Builder)
	b.logger.Debug("detached")
	return nil
}

// Register adds an entity type. While attached, its store file is created
// immediately.
// Returns ErrInvalidEntityName for a type not built by types.NewEntityType
// (empty primary key or a store name that does not match the entity name),
// and ErrEntityExists if an entity type with the same name exists.
func (b *Backend) Register(et *types.EntityType) error {
	if err := validateEntityType(et); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.declared[et.Name]; ok {
		return fmt.Errorf("entity %q: %w", et.Name, types.ErrEntityExists)
	}
	if _, ok := b.entities[et.Name]; ok {
		return fmt.Errorf("entity %q: %w", et.Name, types.ErrEntityExists)
	}
	if b.attached {
		bl, err := b.newBuilderLocked(et)
		if err != nil {
			return err
		}
		b.entities[et.Name] = et
		b.builders[et.Name] = bl
	}
	b.declared[et.Name] = et
	return nil
}

// validateEntityType checks et against what types.NewEntityType would build
// for its name and options.
func validateEntityType(et *types.EntityType) error {
	if et == nil {
		return types.ErrInvalidEntityName
	}
	want, err := types.NewEntityType(et.Name, types.WithKeyStrategy(et.KeyStrategy))
	if err != nil {
		return fmt.Errorf("entity %q: %w", et.Name, err)
	}
	if et.Store != want.Store {
		return fmt.Errorf("entity %q: store %q, want %q: %w", et.Name, et.Store, want.Store, types.ErrInvalidEntityName)
	}
	if et.PrimaryKey == "" {
		return fmt.Errorf("entity %q: empty primary key: %w", et.Name, types.ErrInvalidEntityName)
	}
	return nil
}

// Query returns the shared builder for the named entity type.
// Returns ErrLedgerDetached if not attached and ErrEntityNotFound if the
// entity type is not registered.
func (b *Backend) Query(entity string) (types.Query, error) {
	return b.builder(entity)
}

// Session returns a builder with private state over the named entity's store.
func (b *Backend) Session(entity string) (types.Query, error) {
	bl, err := b.builder(entity)
	if err != nil {
		return nil, err
	}
	return bl.Session(), nil
}

// Records loads every record of the named entity type without touching the
// builder state.
func (b *Backend) Records(entity string) ([]types.Record, error) {
	bl, err := b.builder(entity)
	if err != nil {
		return nil, err
	}
	return bl.store.Load()
}

// EntityTypes lists the entity types available while attached, sorted by
// name.
func (b *Backend) EntityTypes() []*types.EntityType {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*types.EntityType, 0, len(b.entities))
	for _, et := range b.entities {
		out = append(out, et)
	}
	slices.SortFunc(out, func(a, c *types.EntityType) int {
		return strings.Compare(a.Name, c.Name)
	})
	return out
}

// DataDir returns the data directory of the attached configuration.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.GetDataDir()
}

func (b *Backend) builder(entity string) (*Builder, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrLedgerDetached
	}
	bl, ok := b.builders[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrEntityNotFound, entity)
	}
	return bl, nil
}

// newBuilderLocked creates the store and builder for et and makes sure the
// store file exists. The caller must hold b.mu.
func (b *Backend) newBuilderLocked(et *types.EntityType) (*Builder, error) {
	store := NewStore(b.config.GetDataDir(), et.Store, b.config.GetFormat(), b.logger)
	if err := store.EnsureExists(); err != nil {
		return nil, err
	}
	return newBuilder(et, store, b.logger), nil
}
