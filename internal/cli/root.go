// Package cli implements the ledger command-line interface: one subcommand per
// query-builder operation over the entity types declared in config.yaml.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ledger/internal/paths"
	"github.com/mesh-intelligence/ledger/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	verbose   bool
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	config    types.Config // data dir already resolved
	logger    *zap.Logger
}

// NewRootCmd creates the top-level "ledger" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{logger: zap.NewNop()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger stores records in JSON files and queries them",
		Long: "Ledger keeps one JSON file per entity type in a data directory and\n" +
			"offers select/where/find/insert/update/delete over them.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.ledger)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/data)")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newCountCmd(a))
	root.AddCommand(newFindCmd(a))
	root.AddCommand(newInsertCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newExportCmd(a))

	return root
}

// Execute runs the root command with os.Args and returns the process exit
// code.
func Execute() int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	err := root.Execute()
	_ = a.logger.Sync()
	return report(root.ErrOrStderr(), err)
}

// report prints err, if any, and maps it to an exit code.
func report(w io.Writer, err error) int {
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(w, "ledger:", err)
	return exitCode(err)
}

// setup builds the logger and, for every command but version, loads
// config.yaml and resolves the data directory.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(a.flags.verbose)
	if err != nil {
		return sysError(fmt.Errorf("build logger: %w", err))
	}
	a.logger = logger

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg.DataDir = dataDir

	a.configDir = configDir
	a.config = cfg
	a.logger.Debug("configuration loaded",
		zap.String("config_dir", configDir),
		zap.String("data_dir", dataDir),
		zap.Int("entities", len(cfg.Entities)))
	return nil
}

// newLogger returns a production zap logger writing JSON to stderr, at warn
// level unless verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// codedError carries the exit code for an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func sysError(err error) error  { return &codedError{code: exitSysError, err: err} }
func userError(err error) error { return &codedError{code: exitUserError, err: err} }

// exitCode maps err to an exit code. Storage failures are system errors;
// everything else is attributed to the invocation.
func exitCode(err error) int {
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	if errors.Is(err, types.ErrStorageIO) || errors.Is(err, types.ErrStorageFormat) {
		return exitSysError
	}
	return exitUserError
}
