package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "not_started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Attempt is the single ledger entry a student owns for a quiz.
type Attempt struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	QuizID    string        `json:"quizId" gorm:"size:36;not null;uniqueIndex:idx_attempt_student_quiz;index"`
	StudentID string        `json:"studentId" gorm:"size:255;not null;uniqueIndex:idx_attempt_student_quiz"`
	Status    AttemptStatus `json:"status" gorm:"size:20;not null;default:not_started;index"`

	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`

	// Aggregates, filled on completion
	Score          int     `json:"score"`
	MarksObtained  float64 `json:"marksObtained"`
	TotalMarks     float64 `json:"totalMarks"`
	CorrectAnswers int     `json:"correctAnswers"`
	WrongAnswers   int     `json:"wrongAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	TimeSpent      int     `json:"timeSpent"` // seconds

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Answers []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

// AttemptAnswer is one per-question record. Question text and correct answer are
// copied from the quiz when the answer is recorded so later edits to the quiz do
// not rewrite history.
type AttemptAnswer struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	AttemptID      string    `json:"-" gorm:"size:36;not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionIndex  int       `json:"questionIndex" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionText   string    `json:"questionText" gorm:"type:text"`
	SelectedAnswer int       `json:"selectedAnswer"`
	CorrectAnswer  int       `json:"correctAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeSpent      int       `json:"timeSpent"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

func (Attempt) TableName() string {
	return "quiz_attempts"
}

func (AttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}
