package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// QuizPhase is the lifecycle phase derived from a quiz's timing fields and the
// current instant. It is never persisted.
type QuizPhase string

const (
	PhaseScheduled QuizPhase = "scheduled"
	PhaseActive    QuizPhase = "active"
	PhaseEnded     QuizPhase = "ended"
	PhaseInvalid   QuizPhase = "invalid"
)

// ClockTimePattern matches 24h wall-clock strings such as "9:05" or "23:59".
var ClockTimePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduleLocation anchors every date+time splice. Stored dates carry no zone of
// their own, so all quizzes are scheduled in UTC.
var ScheduleLocation = time.UTC

// CombineDateAndClock takes the calendar date of date (in ScheduleLocation) and
// replaces its time of day with clock ("HH:MM").
func CombineDateAndClock(date time.Time, clock string) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("date is required")
	}
	clock = strings.TrimSpace(clock)
	if !ClockTimePattern.MatchString(clock) {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	parts := strings.SplitN(clock, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])

	d := date.In(ScheduleLocation)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, ScheduleLocation), nil
}

// StartInstant is the absolute instant the quiz opens.
func (q *Quiz) StartInstant() (time.Time, error) {
	return CombineDateAndClock(q.StartDate, q.StartTime)
}

// EndInstant is the absolute instant the quiz closes.
func (q *Quiz) EndInstant() (time.Time, error) {
	return CombineDateAndClock(q.EndDate, q.EndTime)
}

// Window returns both instants, failing when any timing field is missing or
// malformed.
func (q *Quiz) Window() (start, end time.Time, err error) {
	if start, err = q.StartInstant(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	if end, err = q.EndInstant(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// Phase evaluates the lifecycle phase at now. Both window bounds are inclusive
// for the active phase.
func (q *Quiz) Phase(now time.Time) QuizPhase {
	start, end, err := q.Window()
	if err != nil {
		return PhaseInvalid
	}
	switch {
	case now.Before(start):
		return PhaseScheduled
	case now.After(end):
		return PhaseEnded
	default:
		return PhaseActive
	}
}

// DurationMinutes returns ceil((end-start)/1m) for a valid window.
func DurationMinutes(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 59999) / 60000)
}
