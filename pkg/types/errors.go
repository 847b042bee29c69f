package types

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match with errors.Is and still read the details with errors.As.
var (
	ErrNotFound          = errors.New("record not found")
	ErrColumnNotFound    = errors.New("no such column")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrStorageFormat     = errors.New("invalid store format")
	ErrStorageIO         = errors.New("store write failed")
	ErrMissingPrimaryKey = errors.New("attributes lack the primary key")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrInvalidEntityName = errors.New("invalid entity name")
	ErrEntityNotFound    = errors.New("entity type not registered")
	ErrEntityExists      = errors.New("entity type already registered")
)

// Ledger lifecycle errors.
var (
	ErrLedgerDetached  = errors.New("ledger is detached")
	ErrAlreadyAttached = errors.New("ledger is already attached")
)

// NotFoundError reports that Find matched no record.
type NotFoundError struct {
	Key any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such record with primary key value %v", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ColumnNotFoundError reports a predicate or projection column that is not
// part of the store schema.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return "no such column: " + e.Column
}

func (e *ColumnNotFoundError) Unwrap() error { return ErrColumnNotFound }

// AttributeNotFoundError reports an attribute name that is neither stored on
// an entity nor served by one of its accessors.
type AttributeNotFoundError struct {
	Entity string
	Name   string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Entity, e.Name)
}

func (e *AttributeNotFoundError) Unwrap() error { return ErrAttributeNotFound }

// StorageFormatError reports a store file whose content does not parse as a
// record sequence.
type StorageFormatError struct {
	Path string
	Err  error
}

func (e *StorageFormatError) Error() string {
	return fmt.Sprintf("file %s contains an invalid record sequence: %v", e.Path, e.Err)
}

func (e *StorageFormatError) Unwrap() []error { return []error{ErrStorageFormat, e.Err} }

// StorageIOError reports a failed write to a store file.
type StorageIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() []error { return []error{ErrStorageIO, e.Err} }
