package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFactoriesFillEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	e := NewWinnerDeclaredEvent(at, WinnerDeclaredEvent{QuizID: "q1", StudentID: "s1", Rank: 2, Amount: 300})

	assert.Equal(t, EventQuizWinnerDeclared, e.Type)
	assert.Equal(t, at, e.Timestamp)
	assert.Equal(t, "quiz-service", e.Source)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 2, e.Metadata["rank"])

	other := NewQuizCreatedEvent(at, QuizCreatedEvent{QuizID: "q1"})
	assert.NotEqual(t, e.ID, other.ID)
}

func TestMockPublisherIsSafeForConcurrentUse(t *testing.T) {
	pub := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.PublishNotificationEvent(ctx, NewQuizCompletedEvent(time.Now(), QuizCompletedEvent{QuizID: "q1"}))
		}()
	}
	wg.Wait()

	assert.Len(t, pub.GetPublishedEvents(), 20)
	assert.Len(t, pub.EventsOfType(EventQuizCompleted), 20)
	assert.Empty(t, pub.EventsOfType(EventQuizCreated))

	pub.ClearEvents()
	assert.Empty(t, pub.GetPublishedEvents())
}

func TestMockPublisherReturnsConfiguredError(t *testing.T) {
	pub := NewMockEventPublisher(nil)
	pub.Err = errors.New("broker down")

	err := pub.PublishNotificationEvent(context.Background(), NewQuizCreatedEvent(time.Now(), QuizCreatedEvent{}))
	require.Error(t, err)
	assert.Empty(t, pub.GetPublishedEvents())
}
