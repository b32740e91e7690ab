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

// AttemptRepository is an in-memory implementation of
// repositories.AttemptRepository. A single mutex gives every method the same
// atomicity the PostgreSQL implementation gets from its unique index and row
// locks.
type AttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]*models.Attempt // id -> attempt
	byPair   map[string]string          // studentID|quizID -> id
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{
		attempts: make(map[string]*models.Attempt),
		byPair:   make(map[string]string),
	}
}

func pairKey(studentID, quizID string) string {
	return studentID + "|" + quizID
}

func (r *AttemptRepository) FindOrCreate(_ context.Context, attempt *models.Attempt) (*models.Attempt, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(attempt.StudentID, attempt.QuizID)
	if id, ok := r.byPair[key]; ok {
		return cloneAttempt(r.attempts[id]), false, nil
	}

	stored := cloneAttempt(attempt)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	stored.Answers = nil
	r.attempts[stored.ID] = stored
	r.byPair[key] = stored.ID
	return cloneAttempt(stored), true, nil
}

func (r *AttemptRepository) GetByStudentAndQuiz(_ context.Context, studentID, quizID string) (*models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPair[pairKey(studentID, quizID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneAttempt(r.attempts[id]), nil
}

func (r *AttemptRepository) MarkStarted(_ context.Context, attemptID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[attemptID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if attempt.Status != models.AttemptNotStarted {
		return false, nil
	}
	attempt.Status = models.AttemptInProgress
	attempt.StartedAt = &at
	attempt.UpdatedAt = time.Now()
	return true, nil
}

func (r *AttemptRepository) RecordAnswer(_ context.Context, attemptID string, answer models.AttemptAnswer, mutate repositories.AnswerMutation) (*models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attempts[attemptID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if stored.IsCompleted() {
		return nil, repositories.ErrAttemptClosed
	}

	// Work on a copy so a failing mutation leaves the stored entry untouched.
	working := cloneAttempt(stored)
	answer.AttemptID = attemptID
	replaced := false
	for i := range working.Answers {
		if working.Answers[i].QuestionIndex == answer.QuestionIndex {
			answer.ID = working.Answers[i].ID
			working.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		answer.ID = uint(len(working.Answers) + 1)
		working.Answers = append(working.Answers, answer)
	}
	sort.Slice(working.Answers, func(i, j int) bool {
		return working.Answers[i].QuestionIndex < working.Answers[j].QuestionIndex
	})

	if mutate != nil {
		answers := append([]models.AttemptAnswer(nil), working.Answers...)
		if err := mutate(working, answers); err != nil {
			return nil, err
		}
	}
	working.UpdatedAt = time.Now()
	r.attempts[attemptID] = working
	return cloneAttempt(working), nil
}

func (r *AttemptRepository) ListByQuiz(_ context.Context, quizID string, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Attempt
	for _, attempt := range r.attempts {
		if attempt.QuizID != quizID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		c := cloneAttempt(attempt)
		c.Answers = nil
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.CompletedAt != nil && b.CompletedAt != nil:
			if !a.CompletedAt.Equal(*b.CompletedAt) {
				return a.CompletedAt.Before(*b.CompletedAt)
			}
		case a.CompletedAt != nil:
			return true
		case b.CompletedAt != nil:
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}
