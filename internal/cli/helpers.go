// Shared helpers for ledger CLI commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mesh-intelligence/ledger/internal/jsonfile"
	"github.com/mesh-intelligence/ledger/pkg/types"
)

// attach creates a JSON file backend and attaches it with cfg. The caller
// must Detach the returned backend.
func (a *app) attach(cfg types.Config) (*jsonfile.Backend, error) {
	b := jsonfile.NewBackend(jsonfile.WithLogger(a.logger))
	if err := b.Attach(cfg); err != nil {
		if errors.Is(err, types.ErrStorageIO) {
			return nil, sysError(fmt.Errorf("attach backend: %w", err))
		}
		return nil, userError(fmt.Errorf("attach backend: %w", err))
	}
	return b, nil
}

// withQuery attaches the configured backend, hands fn a private builder for
// entity, and detaches afterwards.
func (a *app) withQuery(entity string, fn func(q types.Query) error) error {
	return a.withEntity(entity, func(q types.Query, _ *types.EntityType) error {
		return fn(q)
	})
}

// withEntity is withQuery that also passes the entity type.
func (a *app) withEntity(entity string, fn func(q types.Query, et *types.EntityType) error) error {
	b, err := a.attach(a.config)
	if err != nil {
		return err
	}
	defer b.Detach()

	q, err := b.Session(entity)
	if err != nil {
		if errors.Is(err, types.ErrEntityNotFound) {
			return userError(fmt.Errorf("unknown entity %q (declared: %s)", entity, entityNames(b)))
		}
		return err
	}
	ets := b.EntityTypes()
	idx := slices.IndexFunc(ets, func(et *types.EntityType) bool { return et.Name == entity })
	return fn(q, ets[idx])
}

func entityNames(b *jsonfile.Backend) string {
	var names []string
	for _, et := range b.EntityTypes() {
		names = append(names, et.Name)
	}
	if len(names) == 0 {
		return "none; run ledger init --entity <Name>"
	}
	return strings.Join(names, ", ")
}

// parseValue converts a command-line literal to a record value. A literal
// that is a JSON scalar keeps its JSON meaning (integers become int64); any
// other text is taken as a string.
func parseValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	if _, err := dec.Token(); err != io.EOF {
		return s
	}
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return s
	case nil, bool, string:
		return v
	default:
		return s
	}
}

// parseRecord decodes a flat JSON object argument.
func parseRecord(arg string) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal([]byte(arg), &rec); err != nil {
		return nil, userError(fmt.Errorf("invalid record %q: %w", arg, err))
	}
	return rec, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
