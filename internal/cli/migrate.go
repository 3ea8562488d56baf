package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/course-progress/internal/migrations"
	"github.com/magabrotheeeer/course-progress/internal/storage"
)

// MigrateOptions — флаги команды migrate.
type MigrateOptions struct {
	*RootOptions
	Path string
}

type migrateResult struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// NewMigrateCommand создаёт команду migrate: применяет миграции и печатает версию схемы.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			path := opts.Path
			if path == "" {
				path = cfg.MigrationsPath
			}

			db, err := storage.New(cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Run(db.DB, path); err != nil {
				return err
			}
			version, dirty, err := migrations.Version(db.DB, path)
			if err != nil {
				return err
			}
			res := migrateResult{Version: version, Dirty: dirty}
			return printResult(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
				fmt.Fprintf(w, "schema version: %d (dirty: %t)\n", res.Version, res.Dirty)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Path, "path", "", "migrations directory (defaults to migrations_path from config)")
	return cmd
}
