package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/google/uuid"
)

// QuizRepository is an in-memory implementation of repositories.QuizRepository.
type QuizRepository struct {
	mu          sync.RWMutex
	quizzes     map[string]*models.Quiz
	enrollments map[string]map[string]time.Time // quizID -> studentID -> enrolledAt
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		quizzes:     make(map[string]*models.Quiz),
		enrollments: make(map[string]map[string]time.Time),
	}
}

func (r *QuizRepository) Create(_ context.Context, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	for i := range quiz.Questions {
		quiz.Questions[i].QuizID = quiz.ID
	}
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (r *QuizRepository) GetByID(_ context.Context, id string) (*models.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneQuiz(quiz)
	out.EnrolledCount = len(r.enrollments[id])
	return out, nil
}

func (r *QuizRepository) Update(_ context.Context, quiz *models.Quiz, replaceQuestions bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.quizzes[quiz.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	next := cloneQuiz(quiz)
	if !replaceQuestions {
		next.Questions = cloneQuiz(current).Questions
	}
	for i := range next.Questions {
		next.Questions[i].QuizID = quiz.ID
	}
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now()
	quiz.UpdatedAt = next.UpdatedAt
	r.quizzes[quiz.ID] = next
	return nil
}

func (r *QuizRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.quizzes, id)
	return nil
}

func (r *QuizRepository) List(_ context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Quiz
	for _, quiz := range r.quizzes {
		if filters.CreatedBy != nil && quiz.CreatedBy != *filters.CreatedBy {
			continue
		}
		c := cloneQuiz(quiz)
		c.EnrolledCount = len(r.enrollments[quiz.ID])
		out = append(out, c)
	}

	asc := filters.SortOrder == "asc"
	sort.SliceStable(out, func(i, j int) bool {
		var less bool
		switch filters.SortBy {
		case "title":
			less = out[i].Title < out[j].Title
		case "start_date":
			less = out[i].StartDate.Before(out[j].StartDate)
		default:
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			out = nil
		} else {
			out = out[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (r *QuizRepository) Enroll(_ context.Context, quizID, studentID string, at time.Time) (*repositories.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	students := r.enrollments[quizID]
	if students == nil {
		students = make(map[string]time.Time)
		r.enrollments[quizID] = students
	}

	out := &repositories.Enrollment{}
	if enrolledAt, ok := students[studentID]; ok {
		out.EnrolledAt = enrolledAt
	} else {
		if quiz.MaxParticipants > 0 && len(students) >= quiz.MaxParticipants {
			return nil, repositories.ErrCapacityReached
		}
		students[studentID] = at
		out.Created = true
		out.EnrolledAt = at
	}
	out.EnrolledCount = int64(len(students))
	return out, nil
}

func (r *QuizRepository) IsEnrolled(_ context.Context, quizID, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.enrollments[quizID][studentID]
	return ok, nil
}

func (r *QuizRepository) CountEnrollments(_ context.Context, quizID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.enrollments[quizID])), nil
}

func (r *QuizRepository) DeclareWinners(_ context.Context, quizID string, winners []models.Winner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok {
		return repositories.ErrNotFound
	}
	if quiz.WinnersDeclared {
		return repositories.ErrWinnersDeclared
	}
	quiz.Winners = append([]models.Winner(nil), winners...)
	quiz.WinnersDeclared = true
	return nil
}
