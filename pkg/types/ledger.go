package types

// Ledger is the registry of entity types and their query builders.
// Callers attach it to a data directory, register entity types, obtain a
// Query per type, and detach when done.
type Ledger interface {
	// Attach prepares the data directory described by config and registers
	// the entity types config declares. Returns ErrAlreadyAttached if called
	// while attached.
	Attach(config Config) error

	// Detach releases the query builders. Idempotent. After Detach, Query
	// returns ErrLedgerDetached.
	Detach() error

	// Register adds an entity type. Returns ErrEntityExists if a type with
	// the same name is already registered.
	Register(t *EntityType) error

	// Query returns the builder for the named entity type. The same builder
	// is returned on every call until Detach.
	// Returns ErrEntityNotFound if the type is not registered.
	Query(entity string) (Query, error)

	// Session returns a new builder with private state over the same store
	// as Query. Use it when several goroutines build queries on one entity
	// type at once.
	Session(entity string) (Query, error)

	// EntityTypes lists registered entity types sorted by name.
	EntityTypes() []*EntityType
}
