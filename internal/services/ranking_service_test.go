package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

var carol = Actor{UserID: "student-carol", Role: models.RoleStudent}

// listHookAttempts runs afterList once, right after the next ListByQuiz read.
type listHookAttempts struct {
	repositories.AttemptRepository
	afterList func()
}

func (r *listHookAttempts) ListByQuiz(ctx context.Context, quizID string, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	attempts, err := r.AttemptRepository.ListByQuiz(ctx, quizID, filters)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return attempts, err
}

func withRedisCache(t *testing.T) (func(*Dependencies), *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return func(d *Dependencies) {
		d.Cache = cache.NewRedisCache(client, logger)
	}, mr
}

func prizeQuiz(req *CreateQuizRequest) {
	req.PrizePool = 1000
	req.PrizeDistribution = &PrizeDistributionInput{First: 50, Second: 30, Third: 20}
	req.PlatformCommission = 10
}

func TestRankingService_GetRankings(t *testing.T) {
	ctx := context.Background()

	t.Run("orders completed attempts and skips the rest", func(t *testing.T) {
		f := newFixture(t)
		quiz := f.createQuiz(t, nil)
		require.NoError(t, f.users.Upsert(ctx, &models.User{ID: alice.UserID, FullName: "Alice Nguyen", Role: models.RoleStudent}))
		f.clock.Set(duringQuiz)

		f.answerAll(t, bob, quiz.ID, []bool{true, true, true, false}, 20)
		f.answerAll(t, alice, quiz.ID, []bool{true, true, true, false}, 15)
		f.answerAll(t, carol, quiz.ID, []bool{true, true, true, true}, 30)
		_, err := f.services.Attempt().Start(ctx, Actor{UserID: "student-dan", Role: models.RoleStudent}, quiz.ID)
		require.NoError(t, err)

		resp, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
		require.NoError(t, err)

		require.Len(t, resp.Rankings, 3)
		assert.Equal(t, carol.UserID, resp.Rankings[0].StudentID)
		assert.Equal(t, alice.UserID, resp.Rankings[1].StudentID)
		assert.Equal(t, "Alice Nguyen", resp.Rankings[1].StudentName)
		assert.Equal(t, bob.UserID, resp.Rankings[2].StudentID)
		assert.Equal(t, bob.UserID, resp.Rankings[2].StudentName)
		assert.Equal(t, "75.00", resp.Rankings[2].Accuracy)

		assert.Equal(t, quiz.Title, resp.Quiz.Title)
		assert.Equal(t, 4, resp.Quiz.TotalQuestions)
		assert.Equal(t, 4, resp.Statistics.TotalParticipants)
		assert.Equal(t, 83.33, resp.Statistics.AverageScore)
		assert.Equal(t, 100, resp.Statistics.HighestScore)
		assert.Equal(t, 75, resp.Statistics.LowestScore)
	})

	t.Run("limit trims entries only", func(t *testing.T) {
		f := newFixture(t)
		quiz := f.createQuiz(t, nil)
		f.clock.Set(duringQuiz)
		f.answerAll(t, alice, quiz.ID, []bool{true, true, true, true}, 10)
		f.answerAll(t, bob, quiz.ID, []bool{false, false, false, false}, 10)

		resp, err := f.services.Ranking().GetRankings(ctx, bob, quiz.ID, 1)
		require.NoError(t, err)
		require.Len(t, resp.Rankings, 1)
		assert.Equal(t, 2, resp.Statistics.TotalParticipants)
		assert.Equal(t, 0, resp.Statistics.LowestScore)
	})

	t.Run("empty quiz", func(t *testing.T) {
		f := newFixture(t)
		quiz := f.createQuiz(t, nil)

		resp, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, resp.Rankings)
		assert.Zero(t, resp.Statistics.TotalParticipants)
	})

	t.Run("missing quiz", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.services.Ranking().GetRankings(ctx, alice, "missing", 10)
		assert.ErrorIs(t, err, ErrQuizNotFound)
	})
}

func TestRankingService_Cache(t *testing.T) {
	ctx := context.Background()
	opt, mr := withRedisCache(t)
	f := newFixture(t, opt)
	quiz := f.createQuiz(t, nil)
	f.clock.Set(duringQuiz)
	key := rankingCacheKey(quiz.ID)

	f.answerAll(t, alice, quiz.ID, []bool{true, true, true, true}, 10)

	first, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	require.Len(t, first.Rankings, 1)
	assert.True(t, mr.Exists(key))

	cached, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	// completing another attempt drops the snapshot
	f.answerAll(t, bob, quiz.ID, []bool{true, false, false, false}, 10)
	assert.False(t, mr.Exists(key))

	fresh, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	assert.Len(t, fresh.Rankings, 2)

	// a new ledger entry changes the participant count
	_, err = f.services.Attempt().Start(ctx, Actor{UserID: "student-dan", Role: models.RoleStudent}, quiz.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
	withOpen, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	assert.Len(t, withOpen.Rankings, 2)
	assert.Equal(t, 3, withOpen.Statistics.TotalParticipants)

	// quiz edits drop it as well
	_, err = f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))
	_, err = f.services.Quiz().Update(ctx, teacher, quiz.ID, &UpdateQuizRequest{Title: strPtr("Renamed")}, TimeLimitStrict)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestRankingService_RebuildRacingInvalidationIsNotCached(t *testing.T) {
	ctx := context.Background()
	cacheOpt, mr := withRedisCache(t)
	hooked := &listHookAttempts{}
	f := newFixture(t, cacheOpt, func(d *Dependencies) {
		hooked.AttemptRepository = d.Attempts
		d.Attempts = hooked
	})
	quiz := f.createQuiz(t, nil)
	f.clock.Set(duringQuiz)
	f.answerAll(t, alice, quiz.ID, []bool{true, true, true, true}, 10)
	key := rankingCacheKey(quiz.ID)

	// an attempt completes while the rebuild is between its read and its write
	hooked.afterList = func() { f.services.Ranking().InvalidateRankings(ctx, quiz.ID) }
	resp, err := f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Rankings, 1)
	assert.False(t, mr.Exists(key))

	_, err = f.services.Ranking().GetRankings(ctx, alice, quiz.ID, 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
}

func TestRankingService_GetAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.createQuiz(t, nil)

	_, err := f.services.Quiz().Enroll(ctx, carol, quiz.ID)
	require.NoError(t, err)
	f.clock.Set(duringQuiz)
	f.answerAll(t, alice, quiz.ID, []bool{true, true, false, false}, 10)
	f.answerAll(t, bob, quiz.ID, []bool{true, true, true, true}, 10)

	t.Run("owner sees every entry", func(t *testing.T) {
		resp, err := f.services.Ranking().GetAttempts(ctx, teacher, quiz.ID)
		require.NoError(t, err)
		require.Equal(t, 3, resp.Total)
		assert.Equal(t, bob.UserID, resp.Attempts[0].StudentID)
		assert.Equal(t, alice.UserID, resp.Attempts[1].StudentID)
		assert.Equal(t, carol.UserID, resp.Attempts[2].StudentID)
		assert.Equal(t, models.AttemptNotStarted, resp.Attempts[2].Status)
	})

	t.Run("admin", func(t *testing.T) {
		resp, err := f.services.Ranking().GetAttempts(ctx, admin, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("other users are refused", func(t *testing.T) {
		for _, actor := range []Actor{alice, otherTeacher} {
			_, err := f.services.Ranking().GetAttempts(ctx, actor, quiz.ID)
			assert.ErrorIs(t, err, ErrForbidden)
		}
	})
}

func TestRankingService_DeclareWinners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.createQuiz(t, prizeQuiz)
	f.clock.Set(duringQuiz)

	f.answerAll(t, alice, quiz.ID, []bool{true, true, true, true}, 10)
	f.answerAll(t, bob, quiz.ID, []bool{true, true, false, false}, 10)

	_, err := f.services.Ranking().DeclareWinners(ctx, teacher, quiz.ID)
	assert.ErrorIs(t, err, ErrQuizNotEnded)

	f.clock.Set(afterEnd)

	_, err = f.services.Ranking().DeclareWinners(ctx, otherTeacher, quiz.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := f.services.Ranking().DeclareWinners(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	require.Len(t, resp.Winners, 2)
	assert.Equal(t, models.Winner{StudentID: alice.UserID, Rank: 1, Score: 100, Prize: 450}, resp.Winners[0])
	assert.Equal(t, models.Winner{StudentID: bob.UserID, Rank: 2, Score: 50, Prize: 270}, resp.Winners[1])

	stored, err := f.quizzes.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.True(t, stored.WinnersDeclared)
	assert.Len(t, stored.Winners, 2)

	declared := f.publisher.EventsOfType(events.EventQuizWinnerDeclared)
	require.Len(t, declared, 2)

	_, err = f.services.Ranking().DeclareWinners(ctx, teacher, quiz.ID)
	assert.ErrorIs(t, err, ErrWinnersAlreadyDeclared)
	assert.Len(t, f.publisher.EventsOfType(events.EventQuizWinnerDeclared), 2)
}

func TestRankingService_PreviewPrizes(t *testing.T) {
	f := newFixture(t)
	quiz := f.createQuiz(t, prizeQuiz)

	resp, err := f.services.Ranking().PreviewPrizes(context.Background(), alice, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "gross", resp.CommissionMode)
	assert.Equal(t, []PrizePayout{
		{Rank: 1, Percent: 50, Amount: 450},
		{Rank: 2, Percent: 30, Amount: 270},
		{Rank: 3, Percent: 20, Amount: 180},
	}, resp.Payouts)
}

func TestExportService_ExportRankings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz := f.createQuiz(t, nil)
	f.clock.Set(duringQuiz)
	f.answerAll(t, alice, quiz.ID, []bool{true, true, true, false}, 10)
	f.answerAll(t, bob, quiz.ID, []bool{true, true, true, true}, 10)

	_, err := f.services.Export().ExportRankings(ctx, alice, quiz.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	data, err := f.services.Export().ExportRankings(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Rankings", "Statistics"}, book.GetSheetList())

	rows, err := book.GetRows("Rankings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, []string{"1", bob.UserID}, rows[1][:2])
	assert.Equal(t, []string{"2", alice.UserID}, rows[2][:2])
	assert.Equal(t, "75.00", rows[2][8])

	participants, err := book.GetCellValue("Statistics", "B4")
	require.NoError(t, err)
	assert.Equal(t, "2", participants)
}
