package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Field is one column of a Record.
type Field struct {
	Column string
	Value  any
}

// Record is an ordered mapping from column name to a scalar value. Values are
// int64, float64, string, bool, or nil. Column order is preserved through
// encoding and projection.
//
// Record has value semantics: Set, Delete, Merge, and Project return a new
// Record and never modify the receiver.
type Record []Field

// NewRecord builds a Record from a map. Map iteration order is undefined, so
// the columns are sorted by name; use Set to control column order.
func NewRecord(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	r := make(Record, 0, len(keys))
	for _, k := range keys {
		r = append(r, Field{Column: k, Value: Normalize(m[k])})
	}
	return r
}

// Get returns the value stored under column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the record contains column.
func (r Record) Has(column string) bool {
	_, ok := r.Get(column)
	return ok
}

// Set returns a copy of r with column set to value. An existing column keeps
// its position; a new column is appended.
func (r Record) Set(column string, value any) Record {
	out := r.Clone()
	value = Normalize(value)
	for i := range out {
		if out[i].Column == column {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Column: column, Value: value})
}

// Delete returns a copy of r without column.
func (r Record) Delete(column string) Record {
	out := make(Record, 0, len(r))
	for _, f := range r {
		if f.Column != column {
			out = append(out, f)
		}
	}
	return out
}

// Merge returns a copy of r with every column of other applied through Set.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for _, f := range other {
		out = out.Set(f.Column, f.Value)
	}
	return out
}

// Project returns a record holding only the given columns, in the given
// order. Columns absent from r are carried as nil.
func (r Record) Project(columns []string) Record {
	out := make(Record, 0, len(columns))
	for _, c := range columns {
		v, _ := r.Get(c)
		out = append(out, Field{Column: c, Value: v})
	}
	return out
}

// Columns returns the column names in order.
func (r Record) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Column] = f.Value
	}
	return m
}

// Clone returns a shallow copy of r. Values are scalars, so the copy is
// independent of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// MarshalJSON encodes the record as a JSON object with columns in order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Column, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object, keeping column order. Integral
// numbers decode as int64 and other numbers as float64. Nested arrays and
// objects are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		column, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		value, err := scalarFromToken(tok)
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		out = out.Set(column, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func scalarFromToken(tok json.Token) (any, error) {
	switch v := tok.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case json.Delim:
		return nil, fmt.Errorf("nested value %v is not supported", v)
	default:
		return nil, fmt.Errorf("unsupported token %v", v)
	}
}

// Normalize converts Go numeric types to the canonical int64 or float64 so
// that records built in code compare the same way as decoded records.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// IsInteger reports whether v is an integer value after normalization.
func IsInteger(v any) bool {
	_, ok := Normalize(v).(int64)
	return ok
}
