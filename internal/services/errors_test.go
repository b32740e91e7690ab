package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	var verrs ValidationErrors
	verrs = verrs.Add("title", "is required", "")

	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"quiz not found", ErrQuizNotFound, IsNotFound},
		{"wrapped attempt not found", fmt.Errorf("load: %w", ErrAttemptNotFound), IsNotFound},
		{"permission error", NewPermissionError("u", "q", "quiz", "update", "not the quiz owner"), IsUnauthorized},
		{"invalid role", ErrInvalidRole, IsUnauthorized},
		{"field errors", verrs, IsValidation},
		{"validation sentinel", ErrValidationFailed, IsValidation},
		{"business rule", NewBusinessRuleError("capacity", "quiz is full", nil), IsBusinessRule},
		{"active quiz", ErrQuizActive, IsConflict},
		{"closed attempt", ErrAttemptAlreadySubmitted, IsConflict},
		{"winners declared", ErrWinnersAlreadyDeclared, IsConflict},
		{"ended", ErrQuizEnded, IsState},
		{"not started", fmt.Errorf("submit: %w", ErrQuizNotStarted), IsState},
		{"invalid schedule", ErrQuizScheduleInvalid, IsState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
		})
	}

	assert.False(t, IsNotFound(ErrQuizActive))
	assert.False(t, IsConflict(ErrQuizEnded))
	assert.False(t, IsState(ErrQuizNotFound))
	assert.False(t, IsValidation(ErrForbidden))
}

func TestPermissionErrorUnwrapsToForbidden(t *testing.T) {
	err := NewPermissionError("student-1", "quiz-1", "quiz", "delete", "not the quiz owner")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "delete")
}
