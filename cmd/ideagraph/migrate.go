package main

import (
	"github.com/spf13/cobra"

	"github.com/d60-Lab/ideagraph/pkg/database"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed default categories",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			db, err := database.InitDB(cfg)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("migration finished")
			return nil
		},
	}
}
