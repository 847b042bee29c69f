package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ledger/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <db-path>",
		Short: "Write every store into a SQLite database for ad-hoc SQL",
		Long: "Export loads every declared entity type and writes each store into a\n" +
			"table of the SQLite database at db-path, replacing tables of the same name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.attach(a.config)
			if err != nil {
				return err
			}
			defer b.Detach()

			summaries, err := sqlite.Export(cmd.Context(), b, args[0], a.logger)
			if err != nil {
				return sysError(fmt.Errorf("export: %w", err))
			}
			return writeJSON(cmd.OutOrStdout(), summaries)
		},
	}
}
