package types

import (
	"encoding/json"
	"strings"
	"unicode"
)

// DefaultPrimaryKey is the primary-key column used when an entity type does
// not name one.
const DefaultPrimaryKey = "id"

// Key strategies control how Insert assigns a missing primary key.
const (
	KeySequence = "sequence" // max(existing integer keys) + 1
	KeyUUID     = "uuid"     // new UUID v7 string
)

var validKeyStrategies = map[string]bool{
	KeySequence: true,
	KeyUUID:     true,
}

// Accessor computes a derived attribute from a stored record.
type Accessor func(Record) any

// EntityType describes one kind of record and the store that holds it. Build
// it with NewEntityType; the store name is derived once there.
type EntityType struct {
	Name        string // Compound capitalized name, e.g. "OrderItem".
	Store       string // Store file base name, e.g. "order_item".
	PrimaryKey  string
	KeyStrategy string
	Accessors   map[string]Accessor
}

// EntityOption configures an EntityType.
type EntityOption func(*EntityType)

// WithPrimaryKey sets the primary-key column.
func WithPrimaryKey(column string) EntityOption {
	return func(t *EntityType) {
		if column != "" {
			t.PrimaryKey = column
		}
	}
}

// WithKeyStrategy sets how missing primary keys are assigned.
func WithKeyStrategy(strategy string) EntityOption {
	return func(t *EntityType) {
		if strategy != "" {
			t.KeyStrategy = strategy
		}
	}
}

// WithAccessor registers a computed attribute. Accessors shadow stored
// columns of the same name when read through Entity.Get.
func WithAccessor(name string, fn Accessor) EntityOption {
	return func(t *EntityType) {
		t.Accessors[name] = fn
	}
}

// NewEntityType validates name and returns an EntityType with its store name
// resolved. Returns ErrInvalidEntityName if name is not a capitalized
// alphanumeric identifier, and ErrKeyStrategyUnknown for an unknown key
// strategy.
func NewEntityType(name string, opts ...EntityOption) (*EntityType, error) {
	if !validEntityName(name) {
		return nil, ErrInvalidEntityName
	}
	t := &EntityType{
		Name:        name,
		Store:       StoreName(name),
		PrimaryKey:  DefaultPrimaryKey,
		KeyStrategy: KeySequence,
		Accessors:   make(map[string]Accessor),
	}
	for _, opt := range opts {
		opt(t)
	}
	if !validKeyStrategies[t.KeyStrategy] {
		return nil, ErrKeyStrategyUnknown
	}
	return t, nil
}

// StoreName converts a compound capitalized identifier to its lower-case,
// underscore-separated form by splitting before every upper-case letter:
// "OrderItem" becomes "order_item" and "User" becomes "user".
func StoreName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validEntityName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Entity is a read-only view of one stored record.
type Entity struct {
	typ   *EntityType
	attrs Record
}

// NewEntity wraps attrs as an instance of t.
func NewEntity(t *EntityType, attrs Record) *Entity {
	return &Entity{typ: t, attrs: attrs.Clone()}
}

// Type returns the entity type.
func (e *Entity) Type() *EntityType { return e.typ }

// Attributes returns a copy of the stored record.
func (e *Entity) Attributes() Record { return e.attrs.Clone() }

// Key returns the primary-key value, if present.
func (e *Entity) Key() (any, bool) {
	return e.attrs.Get(e.typ.PrimaryKey)
}

// Get returns the named attribute. A registered accessor wins over a stored
// column. The boolean is false when neither exists.
func (e *Entity) Get(name string) (any, bool) {
	if fn, ok := e.typ.Accessors[name]; ok {
		return fn(e.attrs.Clone()), true
	}
	return e.attrs.Get(name)
}

// Attr is Get with an *AttributeNotFoundError for a missing name.
func (e *Entity) Attr(name string) (any, error) {
	v, ok := e.Get(name)
	if !ok {
		return nil, &AttributeNotFoundError{Entity: e.typ.Name, Name: name}
	}
	return v, nil
}

// MarshalJSON encodes the stored record.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.attrs)
}

// Collection is an ordered sequence of entities returned by a query.
type Collection []*Entity

// First returns the first entity, or false if the collection is empty.
func (c Collection) First() (*Entity, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[0], true
}

// Records returns the stored record of every entity.
func (c Collection) Records() []Record {
	out := make([]Record, len(c))
	for i, e := range c {
		out[i] = e.Attributes()
	}
	return out
}
