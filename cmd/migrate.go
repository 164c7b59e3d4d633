package cmd

import (
	"bosko/config"
	"bosko/db"
	"bosko/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		initLogger(cfg)
		defer logger.Sync()

		gdb, err := db.Open(cfg)
		if err != nil {
			logger.Fatal("failed to open database", logger.ErrorField(err))
		}
		defer db.Close(gdb)

		if err := db.AutoMigrate(gdb); err != nil {
			logger.Fatal("migration failed", logger.ErrorField(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
