package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuizValidator holds the quiz rules that struct tags cannot express: option
// counts, answer ranges, and the schedule window relative to now.
type QuizValidator struct{}

// NewQuizValidator creates a new quiz validator
func NewQuizValidator() *QuizValidator {
	return &QuizValidator{}
}

// ValidateQuestions checks every question and reports each broken rule with its
// index, e.g. "questions[1].options".
func (v *QuizValidator) ValidateQuestions(questions []models.QuizQuestion) ValidationErrors {
	var errs ValidationErrors
	if len(questions) == 0 {
		return errs.Add("questions", "must contain at least one question", nil)
	}

	for i, q := range questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		if strings.TrimSpace(q.QuestionText) == "" {
			errs = errs.Add(prefix+".questionText", "is required", nil)
		}
		if len(q.Options) != models.OptionsPerQuestion {
			errs = errs.Add(prefix+".options",
				fmt.Sprintf("must have exactly %d options", models.OptionsPerQuestion), len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= models.OptionsPerQuestion {
			errs = errs.Add(prefix+".correctAnswer", "must be between 0 and 3", q.CorrectAnswer)
		}
		if q.TimeLimit < models.MinQuestionTimeLimit {
			errs = errs.Add(prefix+".timeLimit",
				fmt.Sprintf("must be at least %d seconds", models.MinQuestionTimeLimit), q.TimeLimit)
		}
	}
	return errs
}

// ScheduleInput is the merged set of timing fields to check.
type ScheduleInput struct {
	StartDate time.Time
	EndDate   time.Time
	StartTime string
	EndTime   string
}

// ValidateSchedule builds both instants and checks end > start. When
// requireFuture is set the start instant must also be strictly after now.
func (v *QuizValidator) ValidateSchedule(in ScheduleInput, now time.Time, requireFuture bool) (start, end time.Time, errs ValidationErrors) {
	start, err := models.CombineDateAndClock(in.StartDate, in.StartTime)
	if err != nil {
		errs = errs.Add("startTime", err.Error(), in.StartTime)
	}
	end, err = models.CombineDateAndClock(in.EndDate, in.EndTime)
	if err != nil {
		errs = errs.Add("endTime", err.Error(), in.EndTime)
	}
	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}

	if requireFuture && !start.After(now) {
		errs = errs.Add("startDate", "quiz start must be in the future", start.Format(time.RFC3339))
	}
	if !end.After(start) {
		errs = errs.Add("endDate", "quiz end must be after quiz start", end.Format(time.RFC3339))
	}
	return start, end, errs
}

// ValidatePrizeConfig checks monetization fields that only make sense together.
func (v *QuizValidator) ValidatePrizeConfig(dist models.PrizeDistribution, commission float64) ValidationErrors {
	var errs ValidationErrors
	for rank, pct := range []float64{dist.First, dist.Second, dist.Third} {
		if pct < 0 || pct > 100 {
			errs = errs.Add(fmt.Sprintf("prizeDistribution.rank%d", rank+1), "must be between 0 and 100", pct)
		}
	}
	if sum := dist.First + dist.Second + dist.Third; sum > 100 {
		errs = errs.Add("prizeDistribution", "percentages must not exceed 100 in total", sum)
	}
	if commission < 0 || commission > 100 {
		errs = errs.Add("platformCommission", "must be between 0 and 100", commission)
	}
	return errs
}
