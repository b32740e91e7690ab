package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// NotificationEventService turns quiz lifecycle changes into notification
// events. Callers treat its errors as non-fatal.
type NotificationEventService interface {
	NotifyQuizCreated(ctx context.Context, quiz *models.Quiz) error
	NotifyAttemptStarted(ctx context.Context, quiz *models.Quiz, attempt *models.Attempt) error
	NotifyQuizCompleted(ctx context.Context, quiz *models.Quiz, attempt *models.Attempt) error
	NotifyWinnersDeclared(ctx context.Context, quiz *models.Quiz, winners []models.Winner) error
}

type notificationEventService struct {
	eventPublisher events.EventPublisher
	clock          Clock
	logger         *slog.Logger
}

func NewNotificationEventService(
	eventPublisher events.EventPublisher,
	clock Clock,
	logger *slog.Logger,
) NotificationEventService {
	return &notificationEventService{
		eventPublisher: eventPublisher,
		clock:          clock,
		logger:         logger,
	}
}

func (s *notificationEventService) NotifyQuizCreated(ctx context.Context, quiz *models.Quiz) error {
	s.logger.Info("Publishing quiz created event", "quiz_id", quiz.ID)

	payload := events.QuizCreatedEvent{
		QuizID:    quiz.ID,
		QuizTitle: quiz.Title,
		CreatorID: quiz.CreatedBy,
	}
	if start, end, err := quiz.Window(); err == nil {
		payload.StartsAt = start
		payload.EndsAt = end
	}

	return s.publish(ctx, events.NewQuizCreatedEvent(s.clock.Now(), payload))
}

func (s *notificationEventService) NotifyAttemptStarted(ctx context.Context, quiz *models.Quiz, attempt *models.Attempt) error {
	s.logger.Info("Publishing attempt started event",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"student_id", attempt.StudentID)

	payload := events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		QuizTitle: quiz.Title,
		StudentID: attempt.StudentID,
	}
	if attempt.StartedAt != nil {
		payload.StartedAt = *attempt.StartedAt
	}

	return s.publish(ctx, events.NewAttemptStartedEvent(s.clock.Now(), payload))
}

func (s *notificationEventService) NotifyQuizCompleted(ctx context.Context, quiz *models.Quiz, attempt *models.Attempt) error {
	s.logger.Info("Publishing quiz completed event",
		"attempt_id", attempt.ID,
		"quiz_id", quiz.ID,
		"student_id", attempt.StudentID,
		"score", attempt.Score)

	payload := events.QuizCompletedEvent{
		AttemptID:      attempt.ID,
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		StudentID:      attempt.StudentID,
		Score:          attempt.Score,
		MarksObtained:  attempt.MarksObtained,
		CorrectAnswers: attempt.CorrectAnswers,
		TotalQuestions: attempt.TotalQuestions,
	}
	if attempt.CompletedAt != nil {
		payload.CompletedAt = *attempt.CompletedAt
	}

	return s.publish(ctx, events.NewQuizCompletedEvent(s.clock.Now(), payload))
}

// NotifyWinnersDeclared emits one event per winner so the payment consumer can
// credit each prize independently. It keeps going after a failed publish and
// reports the first error.
func (s *notificationEventService) NotifyWinnersDeclared(ctx context.Context, quiz *models.Quiz, winners []models.Winner) error {
	s.logger.Info("Publishing winner declared events",
		"quiz_id", quiz.ID,
		"winner_count", len(winners))

	var firstErr error
	for _, w := range winners {
		event := events.NewWinnerDeclaredEvent(s.clock.Now(), events.WinnerDeclaredEvent{
			QuizID:    quiz.ID,
			QuizTitle: quiz.Title,
			StudentID: w.StudentID,
			Rank:      w.Rank,
			Score:     w.Score,
			Amount:    w.Prize,
		})
		if err := s.publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *notificationEventService) publish(ctx context.Context, event *events.NotificationEvent) error {
	if err := s.eventPublisher.PublishNotificationEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
