package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/fred-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema, seed the resource catalog and exit",
	Long: `Apply the database schema and indexes, upsert the built-in support
resource catalog by name, then exit.

Examples:
  # Migrate the database named by DATABASE_URL
  DATABASE_URL=postgres://fred@localhost/fred fred migrate

  # Migrate a local SQLite file
  DATABASE_URL=sqlite://fred.db fred migrate`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		pg, err := app.OpenDatabase(log, cfg)
		if err != nil {
			log.Error("Migration failed", "error", err)
			return err
		}
		defer pg.Close()
		n, err := app.SeedResources(cmd.Context(), log, pg.DB())
		if err != nil {
			log.Error("Resource seeding failed", "error", err)
			return err
		}
		log.Info("Migration complete", "resources", n)
		return nil
	},
}
