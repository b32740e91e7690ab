package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
)

var (
	teacher      = Actor{UserID: "teacher-1", Role: models.RoleTeacher}
	otherTeacher = Actor{UserID: "teacher-2", Role: models.RoleTeacher}
	admin        = Actor{UserID: "admin-1", Role: models.RoleAdmin}
	alice        = Actor{UserID: "student-alice", Role: models.RoleStudent}
	bob          = Actor{UserID: "student-bob", Role: models.RoleStudent}

	// Quizzes built by validCreateRequest run 10:00-11:00 UTC on this day.
	beforeStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	duringQuiz  = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	afterEnd    = time.Date(2026, 3, 10, 11, 0, 1, 0, time.UTC)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	quizzes   *memory.QuizRepository
	attempts  *memory.AttemptRepository
	users     *memory.UserRepository
	publisher *events.MockEventPublisher
	clock     *testClock
	services  ServiceManager
}

func newFixture(t *testing.T, opts ...func(*Dependencies)) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		quizzes:   memory.NewQuizRepository(),
		attempts:  memory.NewAttemptRepository(),
		users:     memory.NewUserRepository(),
		publisher: events.NewMockEventPublisher(logger),
		clock:     &testClock{now: beforeStart},
	}
	deps := Dependencies{
		Quizzes:             f.quizzes,
		Attempts:            f.attempts,
		Users:               f.users,
		Publisher:           f.publisher,
		Clock:               f.clock,
		Logger:              logger,
		RankingCacheTTL:     time.Minute,
		PrizeCommissionMode: config.CommissionGross,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.services = NewServiceManager(deps)
	return f
}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

// validCreateRequest builds a four-question quiz with answers 0,1,2,3 running
// from 10:00 to 11:00 UTC on 2026-03-10.
func validCreateRequest() *CreateQuizRequest {
	questions := make([]QuestionInput, 0, 4)
	for i := 0; i < 4; i++ {
		questions = append(questions, QuestionInput{
			QuestionText:  "Question " + string(rune('A'+i)),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: intPtr(i),
			TimeLimit:     intPtr(30),
		})
	}
	return &CreateQuizRequest{
		Title:     "Weekly arithmetic",
		Questions: questions,
		StartDate: "2026-03-10",
		EndDate:   "2026-03-10",
		StartTime: "10:00",
		EndTime:   "11:00",
	}
}

func (f *fixture) createQuiz(t *testing.T, mutate func(*CreateQuizRequest)) *QuizResponse {
	t.Helper()
	req := validCreateRequest()
	if mutate != nil {
		mutate(req)
	}
	quiz, err := f.services.Quiz().Create(context.Background(), teacher, req, TimeLimitStrict)
	require.NoError(t, err)
	return quiz
}

// answerAll submits answers for every question in order. correct decides
// whether each one is answered correctly.
func (f *fixture) answerAll(t *testing.T, student Actor, quizID string, correct []bool, timeSpent int) *SubmitAnswerResponse {
	t.Helper()
	var last *SubmitAnswerResponse
	for i, ok := range correct {
		selected := i
		if !ok {
			selected = (i + 1) % models.OptionsPerQuestion
		}
		resp, err := f.services.Attempt().SubmitAnswer(context.Background(), student, quizID, &SubmitAnswerRequest{
			QuestionIndex:  intPtr(i),
			SelectedAnswer: intPtr(selected),
			TimeSpent:      timeSpent,
		})
		require.NoError(t, err)
		last = resp
	}
	return last
}
