package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptFindOrCreateConcurrent(t *testing.T) {
	repo := NewAttemptRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	ids := map[string]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, ok, err := repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "s1", Status: models.AttemptInProgress})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[a.ID] = true
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
}

func TestAttemptRecordAnswerOverwritesByIndex(t *testing.T) {
	repo := NewAttemptRepository()
	ctx := context.Background()
	a, _, err := repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "s1", Status: models.AttemptInProgress})
	require.NoError(t, err)

	_, err = repo.RecordAnswer(ctx, a.ID, models.AttemptAnswer{QuestionIndex: 1, SelectedAnswer: 0}, nil)
	require.NoError(t, err)
	got, err := repo.RecordAnswer(ctx, a.ID, models.AttemptAnswer{QuestionIndex: 1, SelectedAnswer: 3}, nil)
	require.NoError(t, err)

	require.Len(t, got.Answers, 1)
	assert.Equal(t, 3, got.Answers[0].SelectedAnswer)
}

func TestAttemptRecordAnswerRejectsClosedAttempt(t *testing.T) {
	repo := NewAttemptRepository()
	ctx := context.Background()
	a, _, err := repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "s1", Status: models.AttemptInProgress})
	require.NoError(t, err)

	_, err = repo.RecordAnswer(ctx, a.ID, models.AttemptAnswer{QuestionIndex: 0}, func(at *models.Attempt, _ []models.AttemptAnswer) error {
		at.Status = models.AttemptCompleted
		return nil
	})
	require.NoError(t, err)

	_, err = repo.RecordAnswer(ctx, a.ID, models.AttemptAnswer{QuestionIndex: 0}, nil)
	assert.ErrorIs(t, err, repositories.ErrAttemptClosed)
}

func TestAttemptListByQuizOrdersIncompleteLast(t *testing.T) {
	repo := NewAttemptRepository()
	ctx := context.Background()
	later := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	_, _, _ = repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "pending", Status: models.AttemptInProgress})
	_, _, _ = repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "late", Status: models.AttemptCompleted, CompletedAt: &later})
	_, _, _ = repo.FindOrCreate(ctx, &models.Attempt{QuizID: "q1", StudentID: "early", Status: models.AttemptCompleted, CompletedAt: &earlier})
	_, _, _ = repo.FindOrCreate(ctx, &models.Attempt{QuizID: "other", StudentID: "early", Status: models.AttemptCompleted})

	all, err := repo.ListByQuiz(ctx, "q1", repositories.AttemptFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"early", "late", "pending"}, []string{all[0].StudentID, all[1].StudentID, all[2].StudentID})

	completed := models.AttemptCompleted
	done, err := repo.ListByQuiz(ctx, "q1", repositories.AttemptFilters{Status: &completed})
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestQuizEnrollCapacity(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	quiz := &models.Quiz{Title: "capped", MaxParticipants: 1}
	require.NoError(t, repo.Create(ctx, quiz))

	e, err := repo.Enroll(ctx, quiz.ID, "s1", time.Now())
	require.NoError(t, err)
	assert.True(t, e.Created)

	e, err = repo.Enroll(ctx, quiz.ID, "s1", time.Now())
	require.NoError(t, err)
	assert.False(t, e.Created)
	assert.EqualValues(t, 1, e.EnrolledCount)

	_, err = repo.Enroll(ctx, quiz.ID, "s2", time.Now())
	assert.ErrorIs(t, err, repositories.ErrCapacityReached)
}

func TestQuizReturnsCopies(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	quiz := &models.Quiz{Title: "original", Questions: []models.QuizQuestion{{QuestionText: "q", Options: []string{"a", "b", "c", "d"}}}}
	require.NoError(t, repo.Create(ctx, quiz))

	got, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	got.Title = "changed"
	got.Questions[0].Options[0] = "z"

	again, err := repo.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
	assert.Equal(t, "a", again.Questions[0].Options[0])
}

func TestQuizDeclareWinnersOnce(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	quiz := &models.Quiz{Title: "prize"}
	require.NoError(t, repo.Create(ctx, quiz))

	require.NoError(t, repo.DeclareWinners(ctx, quiz.ID, []models.Winner{{StudentID: "s1", Rank: 1}}))
	assert.ErrorIs(t, repo.DeclareWinners(ctx, quiz.ID, nil), repositories.ErrWinnersDeclared)
	assert.ErrorIs(t, repo.DeclareWinners(ctx, "missing", nil), repositories.ErrNotFound)
}
