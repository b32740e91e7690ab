package services

import (
	"math"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ScoreResult is the aggregate stamped on an attempt when it completes.
type ScoreResult struct {
	Score          int
	MarksObtained  float64
	CorrectAnswers int
	WrongAnswers   int
	TotalQuestions int
}

// ScoreAnswers grades the recorded answers against a quiz of totalQuestions
// questions. Score is the rounded percentage of correct answers; marks are not
// rounded. Answers at indices outside the current question list are ignored.
func ScoreAnswers(answers []models.AttemptAnswer, totalQuestions int, marksPerQuestion float64) ScoreResult {
	correct := 0
	seen := make(map[int]struct{}, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= totalQuestions {
			continue
		}
		if _, dup := seen[a.QuestionIndex]; dup {
			continue
		}
		seen[a.QuestionIndex] = struct{}{}
		if a.IsCorrect {
			correct++
		}
	}

	result := ScoreResult{
		CorrectAnswers: correct,
		WrongAnswers:   totalQuestions - correct,
		TotalQuestions: totalQuestions,
		MarksObtained:  float64(correct) * marksPerQuestion,
	}
	if totalQuestions > 0 {
		result.Score = int(math.Round(float64(correct) / float64(totalQuestions) * 100))
	}
	if result.WrongAnswers < 0 {
		result.WrongAnswers = 0
	}
	return result
}

// DistinctAnsweredCount counts answered question indices inside [0, total).
func DistinctAnsweredCount(answers []models.AttemptAnswer, totalQuestions int) int {
	seen := make(map[int]struct{}, len(answers))
	for _, a := range answers {
		if a.QuestionIndex >= 0 && a.QuestionIndex < totalQuestions {
			seen[a.QuestionIndex] = struct{}{}
		}
	}
	return len(seen)
}

// AttemptTimeSpent sums the per-question time. Clients that never report it
// fall back to the wall-clock span of the attempt.
func AttemptTimeSpent(attempt *models.Attempt, answers []models.AttemptAnswer) int {
	total := 0
	for _, a := range answers {
		total += a.TimeSpent
	}
	if total > 0 {
		return total
	}
	if attempt.StartedAt != nil && attempt.CompletedAt != nil {
		if d := attempt.CompletedAt.Sub(*attempt.StartedAt); d > 0 {
			return int(d.Seconds())
		}
	}
	return 0
}

// defaultMarksPerQuestion spreads totalMarks evenly across the questions.
func defaultMarksPerQuestion(totalMarks float64, questions int) float64 {
	if questions <= 0 {
		return 0
	}
	return totalMarks / float64(questions)
}
