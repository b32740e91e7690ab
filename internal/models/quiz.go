package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizStatusScheduled QuizStatus = "scheduled"
	QuizStatusActive    QuizStatus = "active"
	QuizStatusEnded     QuizStatus = "ended"
)

const (
	DefaultTotalMarks    = 100
	DefaultTimeLimit     = 30
	MinQuestionTimeLimit = 5
	OptionsPerQuestion   = 4
)

type Quiz struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Title       string  `json:"title" gorm:"not null;size:200;index"`
	Description *string `json:"description" gorm:"type:text"`

	// Scheduling. The time of day of StartDate/EndDate is ignored, see Phase.
	StartDate     time.Time `json:"startDate" gorm:"type:date;not null"`
	EndDate       time.Time `json:"endDate" gorm:"type:date;not null"`
	StartTime     string    `json:"startTime" gorm:"size:5;not null"`
	EndTime       string    `json:"endTime" gorm:"size:5;not null"`
	TotalDuration int       `json:"totalDuration"` // minutes

	// Stored for compatibility only; read paths report the derived phase.
	Status QuizStatus `json:"-" gorm:"size:20;default:scheduled"`

	// Scoring
	TotalMarks       float64 `json:"totalMarks" gorm:"default:100"`
	MarksPerQuestion float64 `json:"marksPerQuestion"`

	// Monetization
	Price              float64           `json:"price"`
	IsPaid             bool              `json:"isPaid" gorm:"default:false"`
	PrizePool          float64           `json:"prizePool"`
	PrizeDistribution  PrizeDistribution `json:"prizeDistribution" gorm:"embedded;embeddedPrefix:prize_"`
	PlatformCommission float64           `json:"platformCommission"`
	MaxParticipants    int               `json:"maxParticipants" gorm:"default:0"`

	Winners         datatypes.JSONSlice[Winner] `json:"winners" gorm:"type:jsonb"`
	WinnersDeclared bool                        `json:"winnersDeclared" gorm:"default:false"`

	CreatedBy string         `json:"createdBy" gorm:"size:255;not null;index"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []QuizQuestion `json:"questions" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	EnrolledCount int `json:"enrolledCount" gorm:"-"`
}

type QuizQuestion struct {
	ID            uint                        `json:"-" gorm:"primaryKey"`
	QuizID        string                      `json:"-" gorm:"size:36;not null;index"`
	Position      int                         `json:"position" gorm:"not null"`
	QuestionText  string                      `json:"questionText" gorm:"type:text;not null"`
	Options       datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	CorrectAnswer int                         `json:"correctAnswer" gorm:"not null"`
	TimeLimit     int                         `json:"timeLimit" gorm:"default:30"` // seconds
}

// PrizeDistribution holds the percentage of the prize pool paid to each of the
// top three ranks.
type PrizeDistribution struct {
	First  float64 `json:"first" gorm:"column:first"`
	Second float64 `json:"second" gorm:"column:second"`
	Third  float64 `json:"third" gorm:"column:third"`
}

// Percent returns the configured share for rank 1-3 and zero for any other rank.
func (d PrizeDistribution) Percent(rank int) float64 {
	switch rank {
	case 1:
		return d.First
	case 2:
		return d.Second
	case 3:
		return d.Third
	default:
		return 0
	}
}

type Winner struct {
	StudentID string  `json:"studentId"`
	Rank      int     `json:"rank"`
	Prize     float64 `json:"prize"`
	Score     int     `json:"score"`
	IsPaid    bool    `json:"isPaid"`
}

type QuizEnrollment struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	QuizID     string    `json:"quizId" gorm:"size:36;not null;uniqueIndex:idx_enrollment_quiz_student"`
	StudentID  string    `json:"studentId" gorm:"size:255;not null;uniqueIndex:idx_enrollment_quiz_student"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// QuestionCount returns the number of authored questions.
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

func (QuizEnrollment) TableName() string {
	return "quiz_enrollments"
}
