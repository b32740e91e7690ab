package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// FindOrCreate relies on idx_attempt_student_quiz: concurrent callers all issue
// the insert, at most one row lands, and everyone reads back the same entry.
func (a *AttemptPostgreSQL) FindOrCreate(ctx context.Context, attempt *models.Attempt) (*models.Attempt, bool, error) {
	result := a.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "quiz_id"}},
			DoNothing: true,
		}).
		Create(attempt)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create attempt: %w", result.Error)
	}

	stored, err := a.GetByStudentAndQuiz(ctx, attempt.StudentID, attempt.QuizID)
	if err != nil {
		return nil, false, err
	}
	return stored, result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) GetByStudentAndQuiz(ctx context.Context, studentID, quizID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_index ASC")
		}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) MarkStarted(ctx context.Context, attemptID string, at time.Time) (bool, error) {
	result := a.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND status = ?", attemptID, models.AttemptNotStarted).
		Updates(map[string]interface{}{
			"status":     models.AttemptInProgress,
			"started_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to start attempt: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RecordAnswer serialises writers on the attempt row (SELECT ... FOR UPDATE).
// The answer row itself is an upsert on (attempt_id, question_index) so a
// resubmission overwrites instead of appending.
func (a *AttemptPostgreSQL) RecordAnswer(ctx context.Context, attemptID string, answer models.AttemptAnswer, mutate repositories.AnswerMutation) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&attempt, "id = ?", attemptID).Error; err != nil {
			return translateError(err)
		}
		if attempt.IsCompleted() {
			return repositories.ErrAttemptClosed
		}

		answer.ID = 0
		answer.AttemptID = attemptID
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_index"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"question_text", "selected_answer", "correct_answer", "is_correct", "time_spent", "answered_at",
			}),
		}).Create(&answer).Error; err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}

		var answers []models.AttemptAnswer
		if err := tx.Where("attempt_id = ?", attemptID).Order("question_index ASC").Find(&answers).Error; err != nil {
			return err
		}

		if mutate != nil {
			if err := mutate(&attempt, answers); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(&attempt).Error; err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		attempt.Answers = answers
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByQuiz(ctx context.Context, quizID string, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	query := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("quiz_id = ?", quizID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var attempts []*models.Attempt
	if err := query.
		Order("completed_at ASC NULLS LAST").
		Order("created_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
