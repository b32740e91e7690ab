package validator

import (
	"reflect"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator *validator.Validate
	quizValidator   *QuizValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		quizValidator:   NewQuizValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates struct tags and converts failures into ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Quiz returns the quiz business-rule validator
func (v *Validator) Quiz() *QuizValidator {
	return v.quizValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("clock_time", validateClockTime)
	validate.RegisterValidation("quiz_date", validateQuizDate)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("percentage", validatePercentage)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateClockTime(fl validator.FieldLevel) bool {
	return models.ClockTimePattern.MatchString(fl.Field().String())
}

func validateQuizDate(fl validator.FieldLevel) bool {
	_, err := ParseQuizDate(fl.Field().String())
	return err == nil
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}

func validatePercentage(fl validator.FieldLevel) bool {
	var v float64
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		v = fl.Field().Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = float64(fl.Field().Int())
	default:
		return false
	}
	return v >= 0 && v <= 100
}

// quizDateLayouts are tried in order; the date-only form is what clients send,
// RFC3339 is accepted for payloads echoed back from read responses.
var quizDateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseQuizDate parses a calendar date. Only the date portion is kept; the
// time of day always comes from the separate HH:MM field.
func ParseQuizDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range quizDateLayouts {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
