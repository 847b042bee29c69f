// This file implements the query builder: one per entity type, accumulating
// where-conditions and projections between chained calls and running them
// against a fresh load of the store on every terminal call.
package jsonfile

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// Builder implements types.Query for a single entity type.
//
// The builder returned by Backend.Query is shared by every caller for its
// entity type. Select and Where append to shared state, and each terminal
// call takes and clears that state under one lock, but two chains running at
// once on the shared builder can still mix their conditions. Concurrent
// callers use Session, which gives each chain private state over the same
// store.
type Builder struct {
	entity *types.EntityType
	store  *Store
	logger *zap.Logger

	mu      sync.Mutex
	wheres  []types.Predicate
	columns []string
}

var _ types.Query = (*Builder)(nil)

// querySpec is the state one terminal call runs with.
type querySpec struct {
	wheres  []types.Predicate
	columns []string
}

func newBuilder(entity *types.EntityType, store *Store, logger *zap.Logger) *Builder {
	return &Builder{
		entity: entity,
		store:  store,
		logger: logger.With(zap.String("entity", entity.Name)),
	}
}

// Session returns a builder with its own empty state over the same store.
func (b *Builder) Session() *Builder {
	return &Builder{entity: b.entity, store: b.store, logger: b.logger}
}

// Select sets the projected columns. Calling it with no columns clears the
// projection. Columns are validated when the query runs.
func (b *Builder) Select(columns ...string) types.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns = append([]string(nil), columns...)
	return b
}

// Where adds an equality condition.
func (b *Builder) Where(column string, value any) types.Query {
	return b.WhereOp(column, types.OpEq, value)
}

// WhereOp adds a condition. The operator is validated when the query runs.
func (b *Builder) WhereOp(column string, op types.Operator, value any) types.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wheres = append(b.wheres, types.Predicate{Column: column, Operator: op, Value: types.Normalize(value)})
	return b
}

// take returns the accumulated state and resets it.
func (b *Builder) take() querySpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	spec := querySpec{wheres: b.wheres, columns: b.columns}
	b.wheres = nil
	b.columns = nil
	return spec
}

// Get returns every record matching the accumulated conditions.
func (b *Builder) Get() (types.Collection, error) {
	records, err := b.run(b.take())
	if err != nil {
		return nil, err
	}
	return b.wrapAll(records), nil
}

// Count returns the number of records matching the accumulated conditions.
func (b *Builder) Count() (int, error) {
	records, err := b.run(b.take())
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Find adds a primary-key condition to the accumulated state and returns the
// first match.
func (b *Builder) Find(key any) (*types.Entity, error) {
	spec := b.take()
	spec.wheres = append(spec.wheres, types.Predicate{Column: b.entity.PrimaryKey, Operator: types.OpEq, Value: types.Normalize(key)})
	records, err := b.run(spec)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &types.NotFoundError{Key: key}
	}
	return b.wrap(records[0]), nil
}

// Insert saves attrs, assigning a primary key first if attrs has none.
func (b *Builder) Insert(attrs types.Record) (*types.Entity, error) {
	b.take()
	pk := b.entity.PrimaryKey

	var saved types.Record
	err := b.store.Update(func(records []types.Record) ([]types.Record, error) {
		saved = attrs.Clone()
		if !hasKey(saved, pk) {
			key := b.nextKey(records)
			b.logger.Debug("assigned primary key", zap.Any("key", key))
			saved = saved.Set(pk, key)
		}
		return upsert(records, pk, saved), nil
	})
	if err != nil {
		return nil, err
	}
	return b.wrap(saved), nil
}

// Update replaces the record sharing attrs' primary key, or appends attrs.
func (b *Builder) Update(attrs types.Record) (*types.Entity, error) {
	b.take()
	pk := b.entity.PrimaryKey
	if !hasKey(attrs, pk) {
		return nil, types.ErrMissingPrimaryKey
	}

	saved := attrs.Clone()
	err := b.store.Update(func(records []types.Record) ([]types.Record, error) {
		return upsert(records, pk, saved), nil
	})
	if err != nil {
		return nil, err
	}
	return b.wrap(saved), nil
}

// Delete removes the record sharing attrs' primary key by keeping every
// record whose key is not the same key.
func (b *Builder) Delete(attrs types.Record) error {
	b.take()
	pk := b.entity.PrimaryKey
	key, ok := attrs.Get(pk)
	if !ok || key == nil {
		return types.ErrMissingPrimaryKey
	}

	return b.store.Update(func(records []types.Record) ([]types.Record, error) {
		kept := make([]types.Record, 0, len(records))
		for _, r := range records {
			if v, ok := r.Get(pk); !ok || !sameKey(v, key) {
				kept = append(kept, r)
			}
		}
		b.logger.Debug("deleted records", zap.Any("key", key), zap.Int("removed", len(records)-len(kept)))
		return kept, nil
	})
}

func (b *Builder) run(spec querySpec) ([]types.Record, error) {
	records, err := b.store.Load()
	if err != nil {
		return nil, err
	}
	return applyQuery(records, spec.wheres, spec.columns)
}

// nextKey returns the key Insert assigns under the entity's key strategy.
// A sequence key is one more than the largest integer key, or 1 when the
// store holds no integer keys.
func (b *Builder) nextKey(records []types.Record) any {
	if b.entity.KeyStrategy == types.KeyUUID {
		return newUUID()
	}
	var maxKey int64
	seen := false
	for _, r := range records {
		v, _ := r.Get(b.entity.PrimaryKey)
		if k, ok := integerKey(v); ok && (!seen || k > maxKey) {
			maxKey, seen = k, true
		}
	}
	if !seen {
		return int64(1)
	}
	return maxKey + 1
}

func (b *Builder) wrap(r types.Record) *types.Entity {
	return types.NewEntity(b.entity, r)
}

func (b *Builder) wrapAll(records []types.Record) types.Collection {
	out := make(types.Collection, len(records))
	for i, r := range records {
		out[i] = b.wrap(r)
	}
	return out
}

// upsert replaces the first record with the same key as rec, drops any later
// records with that key, and appends rec if none matched.
func upsert(records []types.Record, pk string, rec types.Record) []types.Record {
	key, _ := rec.Get(pk)
	out := make([]types.Record, 0, len(records)+1)
	found := false
	for _, r := range records {
		v, ok := r.Get(pk)
		if !ok || !sameKey(v, key) {
			out = append(out, r)
			continue
		}
		if !found {
			out = append(out, rec)
			found = true
		}
	}
	if !found {
		out = append(out, rec)
	}
	return out
}

// sameKey reports whether two primary-key values name the same record. An
// integer key matches its base-10 string form. Other values match only when
// equal after normalization, so true, nil, and 0 are distinct keys.
func sameKey(a, b any) bool {
	a, b = types.Normalize(a), types.Normalize(b)
	if ka, ok := integerKey(a); ok {
		if kb, ok := integerKey(b); ok {
			return ka == kb
		}
	}
	switch a.(type) {
	case nil, bool, string, int64, float64:
		return a == b
	}
	return false
}

// hasKey reports whether rec carries a non-nil value for pk.
func hasKey(rec types.Record, pk string) bool {
	v, ok := rec.Get(pk)
	return ok && v != nil
}

// newUUID generates a UUID v7 string, falling back to v4.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
