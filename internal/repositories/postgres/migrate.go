package postgres

import (
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizEnrollment{},
		&models.Attempt{},
		&models.AttemptAnswer{},
	}
}

// Migrate creates or updates the schema, including the unique indexes the
// ledger relies on for find-or-create.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
