package services

import (
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string          `json:"userId"`
	Role   models.UserRole `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsStudent() bool {
	return a.Role == models.RoleStudent
}

// CanAuthor reports whether the caller may create quizzes.
func (a Actor) CanAuthor() bool {
	return a.Role == models.RoleTeacher || a.Role == models.RoleAdmin
}

// Owns reports whether the caller may manage quiz.
func (a Actor) Owns(quiz *models.Quiz) bool {
	return a.IsAdmin() || (quiz != nil && quiz.CreatedBy == a.UserID)
}

// TimeLimitPolicy decides how a question without a timeLimit is treated.
type TimeLimitPolicy int

const (
	// TimeLimitStrict rejects questions that omit timeLimit.
	TimeLimitStrict TimeLimitPolicy = iota
	// TimeLimitLenient fills a missing timeLimit with the default.
	TimeLimitLenient
)

// ===== QUIZ REQUESTS =====

type QuestionInput struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	Options       []string `json:"options" validate:"required"`
	CorrectAnswer *int     `json:"correctAnswer" validate:"required"`
	TimeLimit     *int     `json:"timeLimit"`
}

type PrizeDistributionInput struct {
	First  float64 `json:"first" validate:"percentage"`
	Second float64 `json:"second" validate:"percentage"`
	Third  float64 `json:"third" validate:"percentage"`
}

func (p *PrizeDistributionInput) toModel() models.PrizeDistribution {
	if p == nil {
		return models.PrizeDistribution{}
	}
	return models.PrizeDistribution{First: p.First, Second: p.Second, Third: p.Third}
}

type CreateQuizRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`

	StartDate     string `json:"startDate" validate:"required,quiz_date"`
	EndDate       string `json:"endDate" validate:"required,quiz_date"`
	StartTime     string `json:"startTime" validate:"required,clock_time"`
	EndTime       string `json:"endTime" validate:"required,clock_time"`
	TotalDuration *int   `json:"totalDuration" validate:"omitempty,gt=0"`

	TotalMarks       *float64 `json:"totalMarks" validate:"omitempty,gt=0"`
	MarksPerQuestion *float64 `json:"marksPerQuestion" validate:"omitempty,gt=0"`

	Price              float64                 `json:"price" validate:"gte=0"`
	IsPaid             bool                    `json:"isPaid"`
	PrizePool          float64                 `json:"prizePool" validate:"gte=0"`
	PrizeDistribution  *PrizeDistributionInput `json:"prizeDistribution"`
	PlatformCommission float64                 `json:"platformCommission" validate:"percentage"`
	MaxParticipants    int                     `json:"maxParticipants" validate:"gte=0"`
}

// UpdateQuizRequest is a partial update; nil fields keep their stored value.
// A non-nil Questions replaces the whole question list.
type UpdateQuizRequest struct {
	Title       *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"omitempty,dive"`

	StartDate     *string `json:"startDate" validate:"omitempty,quiz_date"`
	EndDate       *string `json:"endDate" validate:"omitempty,quiz_date"`
	StartTime     *string `json:"startTime" validate:"omitempty,clock_time"`
	EndTime       *string `json:"endTime" validate:"omitempty,clock_time"`
	TotalDuration *int    `json:"totalDuration" validate:"omitempty,gt=0"`

	TotalMarks       *float64 `json:"totalMarks" validate:"omitempty,gt=0"`
	MarksPerQuestion *float64 `json:"marksPerQuestion" validate:"omitempty,gt=0"`

	Price              *float64                `json:"price" validate:"omitempty,gte=0"`
	IsPaid             *bool                   `json:"isPaid"`
	PrizePool          *float64                `json:"prizePool" validate:"omitempty,gte=0"`
	PrizeDistribution  *PrizeDistributionInput `json:"prizeDistribution"`
	PlatformCommission *float64                `json:"platformCommission" validate:"omitempty,percentage"`
	MaxParticipants    *int                    `json:"maxParticipants" validate:"omitempty,gte=0"`
}

func (r *UpdateQuizRequest) touchesTiming() bool {
	return r.StartDate != nil || r.EndDate != nil || r.StartTime != nil || r.EndTime != nil
}

func (r *UpdateQuizRequest) touchesStart() bool {
	return r.StartDate != nil || r.StartTime != nil
}

type ListQuizzesRequest struct {
	CreatedBy string `form:"createdBy" json:"createdBy"`
	Phase     string `form:"phase" json:"phase" validate:"omitempty,oneof=scheduled active ended invalid"`
	Limit     int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" json:"offset" validate:"omitempty,min=0"`
}

// ===== ATTEMPT REQUESTS =====

type SubmitAnswerRequest struct {
	QuestionIndex  *int `json:"questionIndex" validate:"required,gte=0"`
	SelectedAnswer *int `json:"selectedAnswer" validate:"required,gte=0,lte=3"`
	TimeSpent      int  `json:"timeSpent" validate:"gte=0"`
}

// ===== QUIZ RESPONSES =====

type QuestionResponse struct {
	Index         int      `json:"index"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	TimeLimit     int      `json:"timeLimit"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
}

type QuizResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Phase       models.QuizPhase `json:"phase"`

	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	StartsAt      *time.Time `json:"startsAt,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	TotalDuration int        `json:"totalDuration"`

	TotalQuestions   int     `json:"totalQuestions"`
	TotalMarks       float64 `json:"totalMarks"`
	MarksPerQuestion float64 `json:"marksPerQuestion"`

	Price              float64                  `json:"price"`
	IsPaid             bool                     `json:"isPaid"`
	PrizePool          float64                  `json:"prizePool"`
	PrizeDistribution  models.PrizeDistribution `json:"prizeDistribution"`
	PlatformCommission float64                  `json:"platformCommission"`
	MaxParticipants    int                      `json:"maxParticipants"`
	EnrolledCount      int                      `json:"enrolledCount"`

	WinnersDeclared bool            `json:"winnersDeclared"`
	Winners         []models.Winner `json:"winners,omitempty"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Questions []QuestionResponse `json:"questions,omitempty"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type EnrollmentResponse struct {
	QuizID        string    `json:"quizId"`
	StudentID     string    `json:"studentId"`
	Enrolled      bool      `json:"enrolled"`
	AlreadyExists bool      `json:"alreadyEnrolled"`
	EnrolledCount int64     `json:"enrolledCount"`
	EnrolledAt    time.Time `json:"enrolledAt"`
}

// ===== ATTEMPT RESPONSES =====

type AttemptResponse struct {
	ID             string               `json:"id"`
	QuizID         string               `json:"quizId"`
	StudentID      string               `json:"studentId"`
	Status         models.AttemptStatus `json:"status"`
	StartedAt      *time.Time           `json:"startedAt"`
	CompletedAt    *time.Time           `json:"completedAt"`
	Score          int                  `json:"score"`
	MarksObtained  float64              `json:"marksObtained"`
	TotalMarks     float64              `json:"totalMarks"`
	CorrectAnswers int                  `json:"correctAnswers"`
	WrongAnswers   int                  `json:"wrongAnswers"`
	TotalQuestions int                  `json:"totalQuestions"`
	TimeSpent      int                  `json:"timeSpent"`
}

type ProgressResponse struct {
	AttemptResponse
	CompletedQuestions int                    `json:"completedQuestions"`
	Answers            []models.AttemptAnswer `json:"answers"`
}

type SubmitAnswerResponse struct {
	IsCorrect          bool `json:"isCorrect"`
	CorrectAnswer      int  `json:"correctAnswer"`
	CompletedQuestions int  `json:"completedQuestions"`
	TotalQuestions     int  `json:"totalQuestions"`
	IsQuizCompleted    bool `json:"isQuizCompleted"`
}

// ===== RANKING RESPONSES =====

type RankingQuiz struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	TotalMarks     float64 `json:"totalMarks"`
	TotalQuestions int     `json:"totalQuestions"`
}

type RankingEntry struct {
	Rank           int     `json:"rank"`
	StudentID      string  `json:"studentId"`
	StudentName    string  `json:"studentName"`
	Score          int     `json:"score"`
	MarksObtained  float64 `json:"marksObtained"`
	CorrectAnswers int     `json:"correctAnswers"`
	WrongAnswers   int     `json:"wrongAnswers"`
	TimeSpent      int     `json:"timeSpent"`
	Accuracy       string  `json:"accuracy"`
}

// RankingStatistics summarizes a leaderboard. TotalParticipants is the number
// of ledger entries for the quiz whatever their status; the other fields cover
// completed attempts.
type RankingStatistics struct {
	TotalParticipants int     `json:"totalParticipants"`
	AverageScore      float64 `json:"averageScore"`
	AverageTimeSpent  int     `json:"averageTimeSpent"`
	HighestScore      int     `json:"highestScore"`
	LowestScore       int     `json:"lowestScore"`
}

type RankingResponse struct {
	Quiz       RankingQuiz       `json:"quiz"`
	Rankings   []RankingEntry    `json:"rankings"`
	Statistics RankingStatistics `json:"statistics"`
}

type AttemptViewEntry struct {
	AttemptResponse
	StudentName string `json:"studentName"`
}

type AttemptsViewResponse struct {
	Quiz     RankingQuiz        `json:"quiz"`
	Attempts []AttemptViewEntry `json:"attempts"`
	Total    int                `json:"total"`
}

// ===== PRIZE RESPONSES =====

type PrizePayout struct {
	Rank    int     `json:"rank"`
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
}

type PrizeBreakdown struct {
	QuizID         string        `json:"quizId"`
	PrizePool      float64       `json:"prizePool"`
	Commission     float64       `json:"platformCommission"`
	CommissionMode string        `json:"commissionMode"`
	Payouts        []PrizePayout `json:"payouts"`
}

type WinnersResponse struct {
	QuizID  string          `json:"quizId"`
	Winners []models.Winner `json:"winners"`
}

// ===== MAPPERS =====

func toAttemptResponse(a *models.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:             a.ID,
		QuizID:         a.QuizID,
		StudentID:      a.StudentID,
		Status:         a.Status,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
		Score:          a.Score,
		MarksObtained:  a.MarksObtained,
		TotalMarks:     a.TotalMarks,
		CorrectAnswers: a.CorrectAnswers,
		WrongAnswers:   a.WrongAnswers,
		TotalQuestions: a.TotalQuestions,
		TimeSpent:      a.TimeSpent,
	}
}

// toQuizResponse maps a quiz with its derived phase. Correct answers are only
// exposed when showAnswers is set.
func toQuizResponse(q *models.Quiz, now time.Time, showAnswers bool) *QuizResponse {
	resp := &QuizResponse{
		ID:                 q.ID,
		Title:              q.Title,
		Description:        q.Description,
		Phase:              q.Phase(now),
		StartDate:          q.StartDate.Format("2006-01-02"),
		EndDate:            q.EndDate.Format("2006-01-02"),
		StartTime:          q.StartTime,
		EndTime:            q.EndTime,
		TotalDuration:      q.TotalDuration,
		TotalQuestions:     q.QuestionCount(),
		TotalMarks:         q.TotalMarks,
		MarksPerQuestion:   q.MarksPerQuestion,
		Price:              q.Price,
		IsPaid:             q.IsPaid,
		PrizePool:          q.PrizePool,
		PrizeDistribution:  q.PrizeDistribution,
		PlatformCommission: q.PlatformCommission,
		MaxParticipants:    q.MaxParticipants,
		EnrolledCount:      q.EnrolledCount,
		WinnersDeclared:    q.WinnersDeclared,
		Winners:            q.Winners,
		CreatedBy:          q.CreatedBy,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
	}
	if start, end, err := q.Window(); err == nil {
		resp.StartsAt = &start
		resp.EndsAt = &end
	}

	resp.Questions = make([]QuestionResponse, 0, len(q.Questions))
	for i, question := range q.Questions {
		qr := QuestionResponse{
			Index:        i,
			QuestionText: question.QuestionText,
			Options:      question.Options,
			TimeLimit:    question.TimeLimit,
		}
		if showAnswers {
			correct := question.CorrectAnswer
			qr.CorrectAnswer = &correct
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}

func toRankingQuiz(q *models.Quiz) RankingQuiz {
	return RankingQuiz{
		ID:             q.ID,
		Title:          q.Title,
		TotalMarks:     q.TotalMarks,
		TotalQuestions: q.QuestionCount(),
	}
}
