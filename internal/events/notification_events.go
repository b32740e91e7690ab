package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Quiz events
	EventQuizCreated        EventType = "quiz.created"
	EventQuizCompleted      EventType = "quiz.completed"
	EventQuizWinnerDeclared EventType = "quiz.winner_declared"

	// Attempt events
	EventAttemptStarted EventType = "attempt.started"
)

const (
	eventSource  = "quiz-service"
	eventVersion = "1.0"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Quiz notification event payloads

type QuizCreatedEvent struct {
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	CreatorID string    `json:"creatorId"`
	StartsAt  time.Time `json:"startsAt"`
	EndsAt    time.Time `json:"endsAt"`
}

type AttemptStartedEvent struct {
	AttemptID string    `json:"attemptId"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	StudentID string    `json:"studentId"`
	StartedAt time.Time `json:"startedAt"`
}

type QuizCompletedEvent struct {
	AttemptID      string    `json:"attemptId"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	StudentID      string    `json:"studentId"`
	Score          int       `json:"score"`
	MarksObtained  float64   `json:"marksObtained"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
}

// WinnerDeclaredEvent is consumed by the payment collaborator to credit the
// prize; Amount is what this service computed, nothing has been paid yet.
type WinnerDeclaredEvent struct {
	QuizID    string  `json:"quizId"`
	QuizTitle string  `json:"quizTitle"`
	StudentID string  `json:"studentId"`
	Rank      int     `json:"rank"`
	Score     int     `json:"score"`
	Amount    float64 `json:"amount"`
}

// Event factory functions

func newEvent(eventType EventType, at time.Time, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: at,
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewQuizCreatedEvent(at time.Time, payload QuizCreatedEvent) *NotificationEvent {
	return newEvent(EventQuizCreated, at, payload)
}

func NewAttemptStartedEvent(at time.Time, payload AttemptStartedEvent) *NotificationEvent {
	return newEvent(EventAttemptStarted, at, payload)
}

func NewQuizCompletedEvent(at time.Time, payload QuizCompletedEvent) *NotificationEvent {
	return newEvent(EventQuizCompleted, at, payload)
}

func NewWinnerDeclaredEvent(at time.Time, payload WinnerDeclaredEvent) *NotificationEvent {
	e := newEvent(EventQuizWinnerDeclared, at, payload)
	e.Metadata = map[string]interface{}{"rank": payload.Rank}
	return e
}

// GenerateEventID returns a random event id
func GenerateEventID() string {
	return uuid.NewString()
}
