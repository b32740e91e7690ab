package memory

import "github.com/SAP-F-2025/quiz-service/internal/models"

// Stored values never leave the repository by pointer; callers get copies so
// they can mutate freely, the way rows come back from a database.

func cloneQuiz(q *models.Quiz) *models.Quiz {
	out := *q
	out.Questions = make([]models.QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	out.Winners = append([]models.Winner(nil), q.Winners...)
	if q.Description != nil {
		d := *q.Description
		out.Description = &d
	}
	return &out
}

func cloneAttempt(a *models.Attempt) *models.Attempt {
	out := *a
	out.Answers = append([]models.AttemptAnswer(nil), a.Answers...)
	if a.StartedAt != nil {
		t := *a.StartedAt
		out.StartedAt = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
