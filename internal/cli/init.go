package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

type initFlags struct {
	entities    []string
	format      string
	primaryKey  string
	keyStrategy string
}

func newInitCmd(a *app) *cobra.Command {
	f := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize ledger configuration and storage",
		Long: "Create the configuration and data directories, declare entity types in\n" +
			"config.yaml, and create an empty store file for each entity type.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, f)
		},
	}
	cmd.Flags().StringSliceVarP(&f.entities, "entity", "e", nil, "entity type to declare (repeatable)")
	cmd.Flags().StringVar(&f.format, "format", "", "store format: json or jsonl")
	cmd.Flags().StringVar(&f.primaryKey, "primary-key", "", "primary-key column for the declared entity types (default: id)")
	cmd.Flags().StringVar(&f.keyStrategy, "key-strategy", "", "key strategy for the declared entity types: sequence or uuid")
	return cmd
}

func runInit(cmd *cobra.Command, a *app, f *initFlags) error {
	path := filepath.Join(a.configDir, configFileExt)
	fileCfg, err := readConfigFile(path)
	if err != nil {
		return sysError(fmt.Errorf("read config: %w", err))
	}

	changed := false
	if f.format != "" && f.format != fileCfg.Format {
		fileCfg.Format = f.format
		changed = true
	}
	for _, name := range f.entities {
		if slices.ContainsFunc(fileCfg.Entities, func(ec types.EntityConfig) bool { return ec.Name == name }) {
			continue
		}
		ec := types.EntityConfig{Name: name, PrimaryKey: f.primaryKey, KeyStrategy: f.keyStrategy}
		if _, err := ec.EntityType(); err != nil {
			return userError(fmt.Errorf("entity %q: %w", name, err))
		}
		fileCfg.Entities = append(fileCfg.Entities, ec)
		changed = true
	}

	cfg := fileCfg
	cfg.DataDir = a.config.DataDir
	if err := cfg.Validate(); err != nil {
		return userError(err)
	}
	if changed {
		if err := writeConfigFile(path, fileCfg); err != nil {
			return sysError(fmt.Errorf("write config: %w", err))
		}
	}

	// Attach creates the data directory and the store files.
	b, err := a.attach(cfg)
	if err != nil {
		return err
	}
	var names []string
	for _, et := range b.EntityTypes() {
		names = append(names, et.Name)
	}
	if err := b.Detach(); err != nil {
		return sysError(fmt.Errorf("detach: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ledger initialized successfully")
	fmt.Fprintln(out, "  config:  ", a.configDir)
	fmt.Fprintln(out, "  data:    ", cfg.DataDir)
	fmt.Fprintln(out, "  entities:", names)
	return nil
}
