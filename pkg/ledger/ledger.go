// Package ledger provides the public API for the JSON file Ledger backend.
// This package exposes the factory function for creating backends while
// keeping implementation details internal.
package ledger

import (
	"github.com/mesh-intelligence/ledger/internal/jsonfile"
	"github.com/mesh-intelligence/ledger/pkg/types"
)

// Option configures a backend created by NewBackend.
type Option = jsonfile.Option

// WithLogger sets the *zap.Logger used by the backend, its stores, and its
// query builders.
var WithLogger = jsonfile.WithLogger

// NewBackend creates a new JSON file backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := ledger.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend:  types.BackendJSON,
//	    DataDir:  "data",
//	    Entities: []types.EntityConfig{{Name: "User"}},
//	})
//	defer backend.Detach()
//	users, err := backend.Query("User")
func NewBackend(opts ...Option) types.Ledger {
	return jsonfile.NewBackend(opts...)
}
