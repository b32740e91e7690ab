package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// AttemptRepository interface for the attempt ledger. Every method that creates
// or mutates a ledger entry is atomic with respect to concurrent callers on the
// same (student, quiz) pair.
type AttemptRepository interface {
	// FindOrCreate inserts attempt unless an entry for its (student, quiz) pair
	// already exists, and returns the stored entry either way.
	FindOrCreate(ctx context.Context, attempt *models.Attempt) (*models.Attempt, bool, error)
	GetByStudentAndQuiz(ctx context.Context, studentID, quizID string) (*models.Attempt, error) // Includes answers

	// MarkStarted moves a not_started entry to in_progress. It reports false when
	// the entry was already past not_started.
	MarkStarted(ctx context.Context, attemptID string, at time.Time) (bool, error)

	// RecordAnswer upserts answer keyed by question index under a row lock and
	// then applies mutate to the locked attempt before saving it.
	RecordAnswer(ctx context.Context, attemptID string, answer models.AttemptAnswer, mutate AnswerMutation) (*models.Attempt, error)

	// ListByQuiz returns entries ordered by completion time, oldest first, with
	// incomplete entries last.
	ListByQuiz(ctx context.Context, quizID string, filters AttemptFilters) ([]*models.Attempt, error)
}
