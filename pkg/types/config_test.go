package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid json config",
			config:  Config{Backend: "json", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "json with empty DataDir is valid at config level",
			config:  Config{Backend: "json", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "jsonl format is valid",
			config:  Config{Backend: "json", Format: FormatJSONL},
			wantErr: nil,
		},
		{
			name:    "unknown format returns ErrFormatUnknown",
			config:  Config{Backend: "json", Format: "xml"},
			wantErr: ErrFormatUnknown,
		},
		{
			name: "entity with lower-case name returns ErrInvalidEntityName",
			config: Config{Backend: "json", Entities: []EntityConfig{
				{Name: "user"},
			}},
			wantErr: ErrInvalidEntityName,
		},
		{
			name: "entity with unknown key strategy returns ErrKeyStrategyUnknown",
			config: Config{Backend: "json", Entities: []EntityConfig{
				{Name: "User", KeyStrategy: "random"},
			}},
			wantErr: ErrKeyStrategyUnknown,
		},
		{
			name: "duplicate entity returns ErrEntityExists",
			config: Config{Backend: "json", Entities: []EntityConfig{
				{Name: "User"},
				{Name: "User", PrimaryKey: "user_id"},
			}},
			wantErr: ErrEntityExists,
		},
		{
			name: "declared entities are valid",
			config: Config{Backend: "json", Entities: []EntityConfig{
				{Name: "User"},
				{Name: "OrderItem", PrimaryKey: "item_id", KeyStrategy: KeyUUID},
			}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetFormat(); got != FormatJSON {
		t.Errorf("GetFormat() = %q, want %q", got, FormatJSON)
	}
	if got := c.GetDataDir(); got != DefaultDataDirName {
		t.Errorf("GetDataDir() = %q, want %q", got, DefaultDataDirName)
	}
}
