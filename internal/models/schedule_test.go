package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuiz() *Quiz {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return &Quiz{StartDate: day, EndDate: day, StartTime: "10:00", EndTime: "11:00"}
}

func TestQuizPhase(t *testing.T) {
	q := testQuiz()
	at := func(h, m, s int) time.Time { return time.Date(2026, 3, 10, h, m, s, 0, time.UTC) }

	assert.Equal(t, PhaseScheduled, q.Phase(at(9, 59, 59)))
	assert.Equal(t, PhaseActive, q.Phase(at(10, 0, 0)))
	assert.Equal(t, PhaseActive, q.Phase(at(11, 0, 0)))
	assert.Equal(t, PhaseEnded, q.Phase(at(11, 0, 1)))
}

func TestQuizPhase_NeverMovesBackwards(t *testing.T) {
	q := testQuiz()
	order := map[QuizPhase]int{PhaseScheduled: 0, PhaseActive: 1, PhaseEnded: 2}

	prev := -1
	for now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC); now.Hour() < 13; now = now.Add(7 * time.Minute) {
		rank := order[q.Phase(now)]
		assert.GreaterOrEqual(t, rank, prev, now.String())
		prev = rank
	}
}

func TestQuizPhase_Invalid(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

	missing := testQuiz()
	missing.EndTime = ""
	assert.Equal(t, PhaseInvalid, missing.Phase(now))

	malformed := testQuiz()
	malformed.StartTime = "25:00"
	assert.Equal(t, PhaseInvalid, malformed.Phase(now))

	noDate := testQuiz()
	noDate.StartDate = time.Time{}
	assert.Equal(t, PhaseInvalid, noDate.Phase(now))
}

func TestCombineDateAndClock(t *testing.T) {
	// the stored time of day is ignored
	date := time.Date(2026, 3, 10, 23, 15, 0, 0, time.UTC)
	got, err := CombineDateAndClock(date, "9:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC), got)

	_, err = CombineDateAndClock(date, "9h05")
	assert.Error(t, err)
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 60, DurationMinutes(start, start.Add(time.Hour)))
	assert.Equal(t, 2, DurationMinutes(start, start.Add(61*time.Second)))
	assert.Equal(t, 0, DurationMinutes(start, start))
}
