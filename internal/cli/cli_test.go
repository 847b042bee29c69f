package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ledger/internal/paths"
	"github.com/mesh-intelligence/ledger/pkg/ledger"
	"github.com/mesh-intelligence/ledger/pkg/types"
)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(root, ".ledger"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// exec runs the CLI in-process with exactly args.
func exec(args ...string) (string, error) {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// run runs the CLI with the environment's directories.
func (e *testEnv) run(args ...string) (string, error) {
	return exec(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)...)
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "ledger %v", args)
	return out
}

func decodeRecord(t *testing.T, out string) types.Record {
	t.Helper()
	var rec types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec), out)
	return rec
}

func decodeRecords(t *testing.T, out string) []types.Record {
	t.Helper()
	var recs []types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs), out)
	return recs
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("init", "--entity", "User", "--entity", "OrderItem")
	assert.Contains(t, out, "Ledger initialized successfully")
	assert.FileExists(t, filepath.Join(env.dataDir, "user.json"))
	assert.FileExists(t, filepath.Join(env.dataDir, "order_item.json"))

	cfg, err := readConfigFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, types.BackendJSON, cfg.Backend)
	require.Len(t, cfg.Entities, 2)
	assert.Equal(t, "User", cfg.Entities[0].Name)
	assert.Equal(t, "OrderItem", cfg.Entities[1].Name)

	// Idempotent: declaring an existing entity again changes nothing.
	env.mustRun("init", "--entity", "User")
	cfg, err = readConfigFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Len(t, cfg.Entities, 2)
}

func TestInit_Options(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("init", "--format", "jsonl", "--entity", "Session", "--primary-key", "token", "--key-strategy", "uuid")
	assert.FileExists(t, filepath.Join(env.dataDir, "session.jsonl"))

	out := env.mustRun("insert", "Session", `{"user":"sasha"}`)
	rec := decodeRecord(t, out)
	token, ok := rec.Get("token")
	require.True(t, ok)
	assert.Len(t, token, 36)
}

func TestInit_RejectsInvalidEntity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("init", "--entity", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidEntityName)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = env.run("init", "--entity", "User", "--key-strategy", "random")
	assert.ErrorIs(t, err, types.ErrKeyStrategyUnknown)
}

func TestCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init", "--entity", "User")

	for i, body := range []string{
		`{"name":"Sasha","email":"sasha@gmail.com"}`,
		`{"name":"Yaniv","email":"yaniv@gmail.com"}`,
		`{"name":"Alex","email":"alex@gmail.com"}`,
	} {
		rec := decodeRecord(t, env.mustRun("insert", "User", body))
		id, _ := rec.Get("id")
		assert.Equal(t, int64(i+1), id)
	}

	assert.Equal(t, "3\n", env.mustRun("count", "User"))

	got := decodeRecords(t, env.mustRun("get", "User", "--where", "name=Sasha"))
	require.Len(t, got, 1)
	email, _ := got[0].Get("email")
	assert.Equal(t, "sasha@gmail.com", email)

	got = decodeRecords(t, env.mustRun("get", "User", "--where-op", "id > 1", "--where", "name=Sasha"))
	assert.Empty(t, got)

	got = decodeRecords(t, env.mustRun("get", "User", "--where-op", "id > 1", "--select", "email,name"))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"email", "name"}, got[0].Columns())

	assert.Equal(t, "1\n", env.mustRun("count", "User", "--where-op", "id < 2"))

	rec := decodeRecord(t, env.mustRun("find", "User", "2"))
	name, _ := rec.Get("name")
	assert.Equal(t, "Yaniv", name)

	rec = decodeRecord(t, env.mustRun("update", "User", `{"id":2,"name":"Somebody"}`, "--merge"))
	name, _ = rec.Get("name")
	email, _ = rec.Get("email")
	assert.Equal(t, "Somebody", name)
	assert.Equal(t, "yaniv@gmail.com", email)

	out := env.mustRun("delete", "User", "1")
	assert.Equal(t, "Deleted User/1\n", out)
	assert.Equal(t, "2\n", env.mustRun("count", "User"))

	_, err := env.run("find", "User", "1")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestUpdateReplacesWithoutMerge(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init", "--entity", "User")
	env.mustRun("insert", "User", `{"name":"Sasha","email":"sasha@gmail.com"}`)

	env.mustRun("update", "User", `{"id":1,"name":"Somebody"}`)
	rec := decodeRecord(t, env.mustRun("find", "User", "1"))
	assert.False(t, rec.Has("email"))

	_, err := env.run("update", "User", `{"name":"NoKey"}`)
	assert.ErrorIs(t, err, types.ErrMissingPrimaryKey)
	_, err = env.run("update", "User", `{"name":"NoKey"}`, "--merge")
	assert.ErrorIs(t, err, types.ErrMissingPrimaryKey)
}

func TestUserErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init", "--entity", "User")
	env.mustRun("insert", "User", `{"name":"Sasha"}`)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown entity", []string{"get", "Order"}},
		{"unknown column", []string{"get", "User", "--where", "phone=1"}},
		{"unknown select column", []string{"get", "User", "--select", "phone"}},
		{"bad where", []string{"get", "User", "--where", "name"}},
		{"bad where-op", []string{"count", "User", "--where-op", "id >="}},
		{"invalid operator", []string{"count", "User", "--where-op", "id >= 1"}},
		{"nested record", []string{"insert", "User", `{"tags":["a"]}`}},
		{"not json", []string{"insert", "User", `name=Sasha`}},
		{"missing key", []string{"delete", "User", "9"}},
		{"missing args", []string{"find", "User"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}
}

func TestCorruptStoreIsSystemError(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init", "--entity", "User")
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "user.json"), []byte(`[{"id":`), 0o644))

	_, err := env.run("get", "User")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorageFormat)
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init", "--entity", "User")
	env.mustRun("insert", "User", `{"name":"Sasha"}`)

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	out := env.mustRun("export", dbPath)

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "user", summaries[0]["table"])
	assert.Equal(t, float64(1), summaries[0]["rows"])
	assert.FileExists(t, dbPath)
}

func TestVersion(t *testing.T) {
	out, err := exec("version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger v"+ledger.Version)
	assert.Contains(t, out, modulePath)
}

func TestConfigDataDirUsedWithoutFlag(t *testing.T) {
	t.Setenv(paths.EnvDataDir, "")
	root := t.TempDir()
	configDir := filepath.Join(root, "cfg")
	dataDir := filepath.Join(root, "from-config")

	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, writeConfigFile(filepath.Join(configDir, configFileExt), types.Config{
		Backend:  types.BackendJSON,
		DataDir:  dataDir,
		Entities: []types.EntityConfig{{Name: "User"}},
	}))

	_, err := exec("--config-dir", configDir, "insert", "User", `{"name":"Sasha"}`)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "user.json"))
}

func TestDefaultConfigWritten(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("count", "User")
	require.Error(t, err)

	cfg, err := readConfigFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"1", int64(1)},
		{"-12", int64(-12)},
		{"2.5", 2.5},
		{"true", true},
		{"false", false},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{`"42"`, "42"},
		{"Sasha", "Sasha"},
		{"two words", "two words"},
		{"12abc", "12abc"},
		{"1 2", "1 2"},
		{`{"a":1}`, `{"a":1}`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "parseValue(%q)", tt.in)
	}
}

func TestParseCondition(t *testing.T) {
	p, err := parseCondition("id > 1")
	require.NoError(t, err)
	assert.Equal(t, types.Predicate{Column: "id", Operator: types.OpGt, Value: int64(1)}, p)

	p, err = parseCondition("  name != Sasha Smith ")
	require.NoError(t, err)
	assert.Equal(t, types.Predicate{Column: "name", Operator: types.OpNotEq, Value: "Sasha Smith"}, p)

	_, err = parseCondition("id >")
	assert.Error(t, err)

	_, err = parseCondition("id ~ 1")
	assert.ErrorIs(t, err, types.ErrInvalidOperator)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitSuccess, report(&buf, nil))
	assert.Empty(t, buf.String())

	assert.Equal(t, exitSysError, report(&buf, &types.StorageIOError{Path: "x", Op: "read", Err: os.ErrPermission}))
	assert.Contains(t, buf.String(), "ledger:")

	assert.Equal(t, exitUserError, report(&buf, types.ErrNotFound))
}
