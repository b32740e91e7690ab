package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// AttemptService drives a student's single ledger entry for a quiz from
// not_started through completion.
type AttemptService interface {
	Start(ctx context.Context, actor Actor, quizID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, actor Actor, quizID string, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error)
	GetProgress(ctx context.Context, actor Actor, quizID string) (*ProgressResponse, error)
}

type attemptService struct {
	quizzes   repositories.QuizRepository
	attempts  repositories.AttemptRepository
	validator *validator.Validator
	clock     Clock
	notifier  NotificationEventService
	rankings  RankingInvalidator
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewAttemptService(
	quizzes repositories.QuizRepository,
	attempts repositories.AttemptRepository,
	validator *validator.Validator,
	clock Clock,
	notifier NotificationEventService,
	rankings RankingInvalidator,
	logger *slog.Logger,
) AttemptService {
	return &attemptService{
		quizzes:   quizzes,
		attempts:  attempts,
		validator: validator,
		clock:     clock,
		notifier:  notifier,
		rankings:  rankings,
		logger:    logger,
		ops:       NewServiceLogger(logger, "attempt"),
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start moves the caller's entry to in_progress, creating it if needed. Calling
// it again returns the entry unchanged. The window end only blocks entries that
// have not started yet.
func (s *attemptService) Start(ctx context.Context, actor Actor, quizID string) (resp *AttemptResponse, err error) {
	op := s.ops.WithOperation(ctx, "start_attempt", actor.UserID)
	defer func() { op.LogResult(quizID, "quiz", err) }()

	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.UserID, quizID, "quiz", "start", "only students can take quizzes")
	}

	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	existing, err := s.attempts.GetByStudentAndQuiz(ctx, actor.UserID, quizID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if existing != nil && existing.Status != models.AttemptNotStarted {
		s.logger.Info("Attempt already started", "attempt_id", existing.ID, "status", existing.Status)
		r := toAttemptResponse(existing)
		return &r, nil
	}

	switch quiz.Phase(s.clock.Now()) {
	case models.PhaseEnded:
		return nil, ErrQuizEnded
	case models.PhaseInvalid:
		return nil, ErrQuizScheduleInvalid
	}

	attempt, err := s.begin(ctx, quiz, actor.UserID)
	if err != nil {
		return nil, err
	}
	r := toAttemptResponse(attempt)
	return &r, nil
}

// SubmitAnswer records one answer, overwriting any earlier answer for the same
// question, and completes the attempt once every question has an answer.
func (s *attemptService) SubmitAnswer(ctx context.Context, actor Actor, quizID string, req *SubmitAnswerRequest) (resp *SubmitAnswerResponse, err error) {
	op := s.ops.WithOperation(ctx, "submit_answer", actor.UserID)
	defer func() { op.LogResult(quizID, "quiz", err) }()

	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.UserID, quizID, "quiz", "answer", "only students can take quizzes")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	total := quiz.QuestionCount()
	index := *req.QuestionIndex
	if index < 0 || index >= total {
		var errs ValidationErrors
		return nil, errs.Add("questionIndex", fmt.Sprintf("must be between 0 and %d", total-1), index)
	}

	attempt, err := s.attempts.GetByStudentAndQuiz(ctx, actor.UserID, quizID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt != nil && attempt.IsCompleted() {
		return nil, ErrAttemptAlreadySubmitted
	}
	phase := quiz.Phase(s.clock.Now())
	if phase == models.PhaseScheduled {
		return nil, ErrQuizNotStarted
	}
	// An entry already in progress may keep answering after the window ends.
	if attempt == nil || attempt.Status == models.AttemptNotStarted {
		switch phase {
		case models.PhaseEnded:
			return nil, ErrQuizEnded
		case models.PhaseInvalid:
			return nil, ErrQuizScheduleInvalid
		}
		if attempt, err = s.begin(ctx, quiz, actor.UserID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	question := quiz.Questions[index]
	answer := models.AttemptAnswer{
		QuestionIndex:  index,
		QuestionText:   question.QuestionText,
		SelectedAnswer: *req.SelectedAnswer,
		CorrectAnswer:  question.CorrectAnswer,
		IsCorrect:      *req.SelectedAnswer == question.CorrectAnswer,
		TimeSpent:      req.TimeSpent,
		AnsweredAt:     now,
	}

	var completedQuestions int
	updated, err := s.attempts.RecordAnswer(ctx, attempt.ID, answer, func(a *models.Attempt, answers []models.AttemptAnswer) error {
		if a.Status == models.AttemptNotStarted {
			a.Status = models.AttemptInProgress
		}
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
		completedQuestions = DistinctAnsweredCount(answers, total)
		if completedQuestions < total {
			return nil
		}

		result := ScoreAnswers(answers, total, quiz.MarksPerQuestion)
		a.Status = models.AttemptCompleted
		a.CompletedAt = &now
		a.Score = result.Score
		a.MarksObtained = result.MarksObtained
		a.TotalMarks = quiz.TotalMarks
		a.CorrectAnswers = result.CorrectAnswers
		a.WrongAnswers = result.WrongAnswers
		a.TotalQuestions = result.TotalQuestions
		a.TimeSpent = AttemptTimeSpent(a, answers)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAttemptClosed):
			return nil, ErrAttemptAlreadySubmitted
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	resp = &SubmitAnswerResponse{
		IsCorrect:          answer.IsCorrect,
		CorrectAnswer:      answer.CorrectAnswer,
		CompletedQuestions: completedQuestions,
		TotalQuestions:     total,
		IsQuizCompleted:    updated.IsCompleted(),
	}

	if updated.IsCompleted() {
		s.rankings.InvalidateRankings(ctx, quizID)
		if err := s.notifier.NotifyQuizCompleted(ctx, quiz, updated); err != nil {
			s.logger.Warn("Failed to publish quiz completed event", "attempt_id", updated.ID, "error", err)
		}
		s.logger.Info("Attempt completed",
			"attempt_id", updated.ID,
			"quiz_id", quizID,
			"student_id", actor.UserID,
			"score", updated.Score,
			"time_spent", updated.TimeSpent)
	}

	return resp, nil
}

// GetProgress returns the caller's own entry with every recorded answer.
func (s *attemptService) GetProgress(ctx context.Context, actor Actor, quizID string) (*ProgressResponse, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.attempts.GetByStudentAndQuiz(ctx, actor.UserID, quizID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	resp := &ProgressResponse{
		AttemptResponse:    toAttemptResponse(attempt),
		CompletedQuestions: DistinctAnsweredCount(attempt.Answers, quiz.QuestionCount()),
		Answers:            attempt.Answers,
	}
	resp.TotalQuestions = quiz.QuestionCount()
	if resp.Answers == nil {
		resp.Answers = []models.AttemptAnswer{}
	}
	return resp, nil
}

// ===== HELPERS =====

// begin finds or creates the entry for (student, quiz) and starts it. The
// unique pair index makes concurrent callers converge on one entry, and only
// the caller whose MarkStarted wins publishes the started event.
func (s *attemptService) begin(ctx context.Context, quiz *models.Quiz, studentID string) (*models.Attempt, error) {
	attempt, created, err := s.attempts.FindOrCreate(ctx, &models.Attempt{
		QuizID:    quiz.ID,
		StudentID: studentID,
		Status:    models.AttemptNotStarted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	if created {
		s.rankings.InvalidateRankings(ctx, quiz.ID)
	}
	if attempt.Status != models.AttemptNotStarted {
		return attempt, nil
	}

	now := s.clock.Now()
	started, err := s.attempts.MarkStarted(ctx, attempt.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}
	if !started {
		current, err := s.attempts.GetByStudentAndQuiz(ctx, studentID, quiz.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload attempt: %w", err)
		}
		return current, nil
	}

	attempt.Status = models.AttemptInProgress
	attempt.StartedAt = &now

	if err := s.notifier.NotifyAttemptStarted(ctx, quiz, attempt); err != nil {
		s.logger.Warn("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
	}
	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"student_id", studentID,
		"created", created)
	return attempt, nil
}

func (s *attemptService) getQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}
