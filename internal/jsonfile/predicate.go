// This file evaluates where-conditions and projections against loaded records.
//
// Equality is type-loose: a number equals its string form, nil equals the
// falsy values, and a bool compares against the truthiness of the other side.
// Ordering is type-strict: > and < match only integer record values.
package jsonfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// applyQuery validates the predicates and projection against the schema of
// the first record, then filters and projects. Nothing is filtered when
// validation fails.
func applyQuery(records []types.Record, wheres []types.Predicate, columns []string) ([]types.Record, error) {
	for _, p := range wheres {
		if !p.Operator.Valid() {
			return nil, fmt.Errorf("%w %q on column %q", types.ErrInvalidOperator, p.Operator, p.Column)
		}
	}
	if err := validateColumns(records, wheres, columns); err != nil {
		return nil, err
	}

	out := records
	for _, p := range wheres {
		out = filter(out, p)
	}
	if len(columns) > 0 {
		projected := make([]types.Record, len(out))
		for i, r := range out {
			projected[i] = r.Project(columns)
		}
		out = projected
	}
	return out, nil
}

// validateColumns checks every predicate column, then every projected
// column, against the first record. An empty store has no schema to violate.
func validateColumns(records []types.Record, wheres []types.Predicate, columns []string) error {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil
	}
	schema := records[0]
	for _, p := range wheres {
		if !schema.Has(p.Column) {
			return &types.ColumnNotFoundError{Column: p.Column}
		}
	}
	for _, c := range columns {
		if !schema.Has(c) {
			return &types.ColumnNotFoundError{Column: c}
		}
	}
	return nil
}

func filter(records []types.Record, p types.Predicate) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if matches(r, p) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r types.Record, p types.Predicate) bool {
	v, _ := r.Get(p.Column)
	switch p.Operator {
	case types.OpEq:
		return looseEqual(v, p.Value)
	case types.OpNotEq:
		return !looseEqual(v, p.Value)
	case types.OpGt:
		c, ok := compareInteger(v, p.Value)
		return ok && c > 0
	case types.OpLt:
		c, ok := compareInteger(v, p.Value)
		return ok && c < 0
	}
	return false
}

// compareInteger orders an integer record value against a numeric operand.
// ok is false when v is not an integer or the operand is not numeric.
func compareInteger(v, operand any) (int, bool) {
	iv, ok := types.Normalize(v).(int64)
	if !ok {
		return 0, false
	}
	if o, ok := types.Normalize(operand).(int64); ok {
		return cmpOrdered(iv, o), true
	}
	f, ok := numeric(operand)
	if !ok {
		return 0, false
	}
	return cmpOrdered(float64(iv), f), true
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// looseEqual reports whether a and b are equal after type coercion.
func looseEqual(a, b any) bool {
	a, b = types.Normalize(a), types.Normalize(b)

	if a == nil && b == nil {
		return true
	}
	if a == nil {
		a, b = b, a
	}
	if b == nil {
		if s, ok := a.(string); ok {
			return s == ""
		}
		return !truthy(a)
	}

	if ab, ok := a.(bool); ok {
		return ab == truthy(b)
	}
	if bb, ok := b.(bool); ok {
		return bb == truthy(a)
	}

	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		return ai == bi
	}
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb
		}
	}
	return cast.ToString(a) == cast.ToString(b)
}

// numeric converts numbers and numeric strings to float64.
func numeric(v any) (float64, bool) {
	switch n := types.Normalize(v).(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := cast.ToFloat64E(s)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := types.Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0"
	}
	return true
}

// integerKey returns the integer value of a primary key, accepting integer
// strings as well.
func integerKey(v any) (int64, bool) {
	switch k := types.Normalize(v).(type) {
	case int64:
		return k, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		return i, err == nil
	}
	return 0, false
}
