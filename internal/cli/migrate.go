package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

// NewMigrateCmd applies the database schema.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cfg.Environment)

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := postgres.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			logger.Info("Database migrations applied", "tables", len(postgres.Models()))
			return nil
		},
	}
}
