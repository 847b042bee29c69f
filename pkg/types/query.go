package types

// Operator is a comparison operator in a where-condition.
type Operator string

// Supported operators.
const (
	OpEq    Operator = "="
	OpGt    Operator = ">"
	OpLt    Operator = "<"
	OpNotEq Operator = "!="
)

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpGt, OpLt, OpNotEq:
		return true
	}
	return false
}

// Predicate is a single where-condition. Predicates accumulated on a query
// are ANDed together.
type Predicate struct {
	Column   string
	Operator Operator
	Value    any
}

// Query builds and runs queries against the store of one entity type.
// Select and Where calls accumulate state and return the same Query for
// chaining. Every terminal call (Get, Count, Find, Insert, Update, Delete)
// loads the store afresh and clears the accumulated state, whether it
// succeeds or fails.
type Query interface {
	// Select sets the projected columns, in result order.
	Select(columns ...string) Query

	// Where adds an equality condition.
	Where(column string, value any) Query

	// WhereOp adds a condition with an explicit operator.
	WhereOp(column string, op Operator, value any) Query

	// Get returns every record matching the accumulated conditions.
	// Returns a *ColumnNotFoundError if a condition or projection names a
	// column the store does not have.
	Get() (Collection, error)

	// Count returns the number of records Get would return.
	Count() (int, error)

	// Find returns the record whose primary key equals key.
	// Returns a *NotFoundError if there is none.
	Find(key any) (*Entity, error)

	// Insert stores attrs as a new record. A missing primary key is
	// assigned by the entity's key strategy. An existing record with the
	// same key is replaced.
	Insert(attrs Record) (*Entity, error)

	// Update replaces the record whose primary key matches attrs, or
	// appends attrs if none does. Returns ErrMissingPrimaryKey if attrs has
	// no primary key.
	Update(attrs Record) (*Entity, error)

	// Delete removes the record whose primary key matches attrs.
	// Returns ErrMissingPrimaryKey if attrs has no primary key.
	Delete(attrs Record) error
}
