package repositories

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// UserRepository interface for the local user directory (minimal, the identity
// provider owns user data)
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
