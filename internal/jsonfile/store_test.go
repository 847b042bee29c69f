package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "order_item.json"), ResolvePath("data", "order_item", types.FormatJSON))
	assert.Equal(t, filepath.Join("data", "user.jsonl"), ResolvePath("data", "user", types.FormatJSONL))
}

func TestStore_EnsureExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewStore(dir, "user", types.FormatJSON, nil)

	require.NoError(t, s.EnsureExists())
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	// Idempotent: existing content is kept.
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"id":1}]`), 0o644))
	require.NoError(t, s.EnsureExists())
	data, err = os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(data))
}

func TestStore_LoadEmpty(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		content *string
	}{
		{name: "absent json file", format: types.FormatJSON},
		{name: "absent jsonl file", format: types.FormatJSONL},
		{name: "zero-byte json file", format: types.FormatJSON, content: ptr("")},
		{name: "whitespace json file", format: types.FormatJSON, content: ptr("  \n")},
		{name: "empty array", format: types.FormatJSON, content: ptr("[]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(t.TempDir(), "user", tt.format, nil)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(s.Path(), []byte(*tt.content), 0o644))
			}
			records, err := s.Load()
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.FileExists(t, s.Path())
		})
	}
}

func TestStore_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		content string
	}{
		{"truncated array", types.FormatJSON, `[{"id":1},`},
		{"object instead of array", types.FormatJSON, `{"id":1}`},
		{"null", types.FormatJSON, `null`},
		{"array of numbers", types.FormatJSON, `[1,2]`},
		{"nested value", types.FormatJSON, `[{"id":1,"tags":["a"]}]`},
		{"trailing data", types.FormatJSON, `[{"id":1}] [{"id":2}]`},
		{"malformed jsonl line", types.FormatJSONL, "{\"id\":1}\n{\"id\":\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(t.TempDir(), "user", tt.format, nil)
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o644))

			_, err := s.Load()
			require.Error(t, err)
			var sfe *types.StorageFormatError
			require.True(t, errors.As(err, &sfe), "expected StorageFormatError, got %T", err)
			assert.Equal(t, s.Path(), sfe.Path)
			assert.ErrorIs(t, err, types.ErrStorageFormat)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	records := []types.Record{
		types.Record{}.Set("id", 1).Set("name", "Sasha").Set("admin", true).Set("note", nil),
		types.Record{}.Set("id", 2).Set("name", "Yaniv").Set("admin", false).Set("score", 2.5),
		types.Record{}.Set("id", 3).Set("name", "").Set("quote", `say "hi"`),
	}

	for _, format := range []string{types.FormatJSON, types.FormatJSONL} {
		t.Run(format, func(t *testing.T) {
			s := NewStore(t.TempDir(), "user", format, nil)
			require.NoError(t, s.Persist(records))

			got, err := s.Load()
			require.NoError(t, err)
			if diff := cmp.Diff(records, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_PersistEmptyWritesEmptyArray(t *testing.T) {
	s := NewStore(t.TempDir(), "user", types.FormatJSON, nil)
	require.NoError(t, s.Persist(nil))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStore_PersistJSONLOneRecordPerLine(t *testing.T) {
	s := NewStore(t.TempDir(), "user", types.FormatJSONL, nil)
	require.NoError(t, s.Persist([]types.Record{
		types.Record{}.Set("id", 1),
		types.Record{}.Set("id", 2),
	}))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}\n", string(data))
}

func TestStore_PersistFailureIsReported(t *testing.T) {
	// A regular file where the data directory should be makes every write fail.
	root := t.TempDir()
	blocker := filepath.Join(root, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	s := NewStore(blocker, "user", types.FormatJSON, nil)
	err := s.Persist([]types.Record{types.Record{}.Set("id", 1)})
	require.Error(t, err)

	var ioErr *types.StorageIOError
	require.True(t, errors.As(err, &ioErr), "expected StorageIOError, got %T", err)
	assert.ErrorIs(t, err, types.ErrStorageIO)
}

func TestStore_PersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "user", types.FormatJSON, nil)
	require.NoError(t, s.Persist([]types.Record{types.Record{}.Set("id", 1)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user.json", entries[0].Name())
}

func TestStore_UpdateAbortsOnError(t *testing.T) {
	s := NewStore(t.TempDir(), "user", types.FormatJSON, nil)
	require.NoError(t, s.Persist([]types.Record{types.Record{}.Set("id", 1)}))

	boom := errors.New("boom")
	err := s.Update(func(records []types.Record) ([]types.Record, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func ptr(s string) *string { return &s }
