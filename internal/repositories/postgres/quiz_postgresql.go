package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var quizSortColumns = map[string]bool{
	"created_at": true,
	"title":      true,
	"start_date": true,
}

type QuizPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts the quiz together with its questions
func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quiz).Error; err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a quiz with its questions in authored order
func (q *QuizPostgreSQL) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := q.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}

	count, err := q.CountEnrollments(ctx, id)
	if err != nil {
		return nil, err
	}
	quiz.EnrolledCount = int(count)

	return &quiz, nil
}

// Update saves scalar fields and, when replaceQuestions is set, swaps the whole
// question list for quiz.Questions.
func (q *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz, replaceQuestions bool) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := quiz.Questions
		if err := tx.Omit(clause.Associations).Save(quiz).Error; err != nil {
			return fmt.Errorf("failed to update quiz: %w", err)
		}
		if !replaceQuestions {
			return nil
		}

		if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&models.QuizQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to remove old questions: %w", err)
		}
		for i := range questions {
			questions[i].ID = 0
			questions[i].QuizID = quiz.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return fmt.Errorf("failed to create questions: %w", err)
			}
		}
		quiz.Questions = questions
		return nil
	})
}

// Delete soft deletes a quiz. Attempts are left in place.
func (q *QuizPostgreSQL) Delete(ctx context.Context, id string) error {
	result := q.db.WithContext(ctx).Delete(&models.Quiz{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// List retrieves quizzes with filters and pagination
func (q *QuizPostgreSQL) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Quiz{})
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset, quizSortColumns)

	var quizzes []*models.Quiz
	err := query.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

// Enroll adds the student under a lock on the quiz row so the capacity check
// and the insert cannot interleave with another enrollment.
func (q *QuizPostgreSQL) Enroll(ctx context.Context, quizID, studentID string, at time.Time) (*repositories.Enrollment, error) {
	var out repositories.Enrollment
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz models.Quiz
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "max_participants").
			First(&quiz, "id = ?", quizID).Error; err != nil {
			return translateError(err)
		}

		var existing models.QuizEnrollment
		err := tx.Where("quiz_id = ? AND student_id = ?", quizID, studentID).Limit(1).Find(&existing).Error
		if err != nil {
			return err
		}

		if existing.ID == 0 {
			var count int64
			if err := tx.Model(&models.QuizEnrollment{}).Where("quiz_id = ?", quizID).Count(&count).Error; err != nil {
				return err
			}
			if quiz.MaxParticipants > 0 && count >= int64(quiz.MaxParticipants) {
				return repositories.ErrCapacityReached
			}
			existing = models.QuizEnrollment{QuizID: quizID, StudentID: studentID, EnrolledAt: at}
			if err := tx.Create(&existing).Error; err != nil {
				return fmt.Errorf("failed to create enrollment: %w", err)
			}
			out.Created = true
		}
		out.EnrolledAt = existing.EnrolledAt

		return tx.Model(&models.QuizEnrollment{}).Where("quiz_id = ?", quizID).Count(&out.EnrolledCount).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *QuizPostgreSQL) IsEnrolled(ctx context.Context, quizID, studentID string) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&models.QuizEnrollment{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (q *QuizPostgreSQL) CountEnrollments(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&models.QuizEnrollment{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

// DeclareWinners stores the winner list exactly once; the conditional update
// makes a concurrent second declaration fail instead of overwriting.
func (q *QuizPostgreSQL) DeclareWinners(ctx context.Context, quizID string, winners []models.Winner) error {
	result := q.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ? AND winners_declared = ?", quizID, false).
		Updates(map[string]interface{}{
			"winners":          datatypes.NewJSONSlice(winners),
			"winners_declared": true,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to declare winners: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := q.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", quizID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repositories.ErrNotFound
		}
		return repositories.ErrWinnersDeclared
	}
	return nil
}
