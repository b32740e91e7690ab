package repositories

import (
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== SHARED ERRORS =====

var (
	// ErrNotFound is returned by every repository when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrCapacityReached is returned by Enroll when maxParticipants is reached.
	ErrCapacityReached = errors.New("participant limit reached")
	// ErrAttemptClosed is returned by RecordAnswer once the attempt is completed.
	ErrAttemptClosed = errors.New("attempt is closed")
	// ErrWinnersDeclared is returned by DeclareWinners on the second call.
	ErrWinnersDeclared = errors.New("winners already declared")
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	CreatedBy *string `json:"createdBy"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sortBy"`    // "created_at", "title", "start_date"
	SortOrder string  `json:"sortOrder"` // "asc", "desc"
}

type AttemptFilters struct {
	Status *models.AttemptStatus `json:"status"`
}

// ===== SHARED HELPER STRUCTS =====

// AnswerMutation is applied to a locked attempt after the new answer has been
// stored. answers holds every recorded answer for the attempt ordered by index.
type AnswerMutation func(attempt *models.Attempt, answers []models.AttemptAnswer) error

// Enrollment reports the outcome of an enroll call.
type Enrollment struct {
	Created       bool      `json:"created"`
	EnrolledCount int64     `json:"enrolledCount"`
	EnrolledAt    time.Time `json:"enrolledAt"`
}
