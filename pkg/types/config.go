package types

import (
	"errors"
	"fmt"
)

// Config holds backend selection and parameters for Ledger.Attach.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Format   string         `json:"format" yaml:"format,omitempty" mapstructure:"format"`
	Entities []EntityConfig `json:"entities" yaml:"entities,omitempty" mapstructure:"entities"`
}

// EntityConfig declares an entity type in configuration.
type EntityConfig struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	PrimaryKey  string `json:"primary_key" yaml:"primary_key,omitempty" mapstructure:"primary_key"`
	KeyStrategy string `json:"key_strategy" yaml:"key_strategy,omitempty" mapstructure:"key_strategy"`
}

// Supported backend names.
const (
	BackendJSON = "json"
)

// Store file formats.
const (
	FormatJSON  = "json"  // one JSON array per store
	FormatJSONL = "jsonl" // one JSON object per line
)

// DefaultDataDirName is the data directory used when none is configured.
const DefaultDataDirName = "data"

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrFormatUnknown      = errors.New("unknown store format")
	ErrKeyStrategyUnknown = errors.New("unknown key strategy")
)

var knownBackends = map[string]bool{
	BackendJSON: true,
}

var knownFormats = map[string]bool{
	FormatJSON:  true,
	FormatJSONL: true,
}

// GetFormat returns the store format, defaulting to FormatJSON.
func (c Config) GetFormat() string {
	if c.Format == "" {
		return FormatJSON
	}
	return c.Format
}

// GetDataDir returns the data directory, defaulting to DefaultDataDirName.
func (c Config) GetDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDirName
	}
	return c.DataDir
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure, wrapped with the offending entity name where
// there is one.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownFormats[c.GetFormat()] {
		return ErrFormatUnknown
	}
	seen := make(map[string]bool, len(c.Entities))
	for _, ec := range c.Entities {
		if _, err := ec.EntityType(); err != nil {
			return fmt.Errorf("entity %q: %w", ec.Name, err)
		}
		if seen[ec.Name] {
			return fmt.Errorf("entity %q: %w", ec.Name, ErrEntityExists)
		}
		seen[ec.Name] = true
	}
	return nil
}

// EntityType builds the EntityType the configuration describes.
func (ec EntityConfig) EntityType() (*EntityType, error) {
	return NewEntityType(ec.Name,
		WithPrimaryKey(ec.PrimaryKey),
		WithKeyStrategy(ec.KeyStrategy),
	)
}
