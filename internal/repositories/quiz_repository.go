package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuizRepository interface for quiz definition operations
type QuizRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id string) (*models.Quiz, error) // Includes questions ordered by position
	Update(ctx context.Context, quiz *models.Quiz, replaceQuestions bool) error
	Delete(ctx context.Context, id string) error // Soft delete

	// Query operations
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)

	// Enrollment
	Enroll(ctx context.Context, quizID, studentID string, at time.Time) (*Enrollment, error)
	IsEnrolled(ctx context.Context, quizID, studentID string) (bool, error)
	CountEnrollments(ctx context.Context, quizID string) (int64, error)

	// Settlement
	DeclareWinners(ctx context.Context, quizID string, winners []models.Winner) error
}
