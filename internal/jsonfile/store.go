// This file implements the record store: one file per entity type holding the
// whole record sequence, loaded fully and replaced wholesale on every write.
package jsonfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// ResolvePath returns the file backing a store. It has no side effects.
func ResolvePath(dataDir, storeName, format string) string {
	ext := ".json"
	if format == types.FormatJSONL {
		ext = ".jsonl"
	}
	return filepath.Join(dataDir, storeName+ext)
}

// Store owns the backing file of one entity type. Its mutex serializes
// load-modify-persist cycles within this process only; other processes
// writing the same file are not coordinated.
type Store struct {
	path   string
	format string
	logger *zap.Logger

	mu sync.Mutex
}

// NewStore returns a Store for the named store in dataDir.
func NewStore(dataDir, storeName, format string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   ResolvePath(dataDir, storeName, format),
		format: format,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// EnsureExists creates the data directory and an empty store file if the
// file does not exist. Idempotent.
func (s *Store) EnsureExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureExists()
}

// Load returns every record in the store. A missing file is created empty
// first. Returns a *types.StorageFormatError if the file is not empty and does
// not parse as a record sequence.
func (s *Store) Load() ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Persist replaces the store content with records. Returns a
// *types.StorageIOError if the write cannot complete; the previous content is
// left intact in that case.
func (s *Store) Persist(records []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(records)
}

// Update loads the store, passes the records to fn, and persists what fn
// returns, all under the store mutex. If fn fails nothing is written.
func (s *Store) Update(fn func([]types.Record) ([]types.Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return s.persist(next)
}

func (s *Store) ensureExists() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &types.StorageIOError{Path: s.path, Op: "stat", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &types.StorageIOError{Path: s.path, Op: "create directory for", Err: err}
	}
	s.logger.Debug("creating empty store", zap.String("path", s.path))
	return s.writeFile(emptyContent(s.format))
}

func (s *Store) load() ([]types.Record, error) {
	if err := s.ensureExists(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &types.StorageIOError{Path: s.path, Op: "read", Err: err}
	}
	records, err := decodeRecords(s.format, data)
	if err != nil {
		return nil, &types.StorageFormatError{Path: s.path, Err: err}
	}
	s.logger.Debug("loaded store", zap.String("path", s.path), zap.Int("records", len(records)))
	return records, nil
}

func (s *Store) persist(records []types.Record) error {
	data, err := encodeRecords(s.format, records)
	if err != nil {
		return &types.StorageIOError{Path: s.path, Op: "encode", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &types.StorageIOError{Path: s.path, Op: "create directory for", Err: err}
	}
	if err := s.writeFile(data); err != nil {
		return err
	}
	s.logger.Debug("persisted store", zap.String("path", s.path), zap.Int("records", len(records)))
	return nil
}

// writeFile replaces the store file using the temp-file, fsync, rename
// pattern so readers never observe a partial write.
func (s *Store) writeFile(data []byte) error {
	fail := func(op string, err error) error {
		return &types.StorageIOError{Path: s.path, Op: op, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.tmp")
	if err != nil {
		return fail("create temp file for", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fail("close", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fail("rename temp file to", err)
	}
	return nil
}
