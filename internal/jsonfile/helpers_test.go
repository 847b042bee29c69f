package jsonfile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// attachUsers returns a backend attached to a temp dir with a User entity.
func attachUsers(t *testing.T, format string) *Backend {
	t.Helper()
	b := NewBackend()
	err := b.Attach(types.Config{
		Backend:  types.BackendJSON,
		DataDir:  t.TempDir(),
		Format:   format,
		Entities: []types.EntityConfig{{Name: "User"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Detach() })
	return b
}

func userQuery(t *testing.T, b *Backend) types.Query {
	t.Helper()
	q, err := b.Query("User")
	require.NoError(t, err)
	return q
}

func user(name, email string) types.Record {
	return types.Record{}.Set("name", name).Set("email", email)
}

// seedUsers inserts Sasha, Yaniv, and Alex with ids 1, 2, 3.
func seedUsers(t *testing.T, q types.Query) {
	t.Helper()
	for _, r := range []types.Record{
		user("Sasha", "sasha@gmail.com"),
		user("Yaniv", "yaniv@gmail.com"),
		user("Alex", "alex@gmail.com"),
	} {
		_, err := q.Insert(r)
		require.NoError(t, err)
	}
}

func keysOf(c types.Collection) []any {
	keys := make([]any, 0, len(c))
	for _, e := range c {
		k, _ := e.Key()
		keys = append(keys, k)
	}
	return keys
}
