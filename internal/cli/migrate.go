package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	dbpkg "github.com/civicdesk/rollcall/internal/db"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply every embedded migration not yet recorded in the database, then
print the schema version.  --seed also loads the dev roster.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer db.Close()

			if seed {
				if err := dbpkg.SeedDev(ctx, db, dbpkg.SeedDevOptions{KnownKiosks: cfg.KnownKiosks}); err != nil {
					return err
				}
			}

			version, err := dbpkg.CurrentVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.DBPath, version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "load the dev roster and commission known kiosks")

	return cmd
}
