package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"blazeoffice/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert the database schema",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		if direction != "up" && direction != "down" {
			return fmt.Errorf("unknown direction %q, want up or down", direction)
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
		return db.Migrate(cfg.DatabaseURL, direction == "down", log)
	},
}
