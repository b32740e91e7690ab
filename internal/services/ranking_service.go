package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// RankingInvalidator drops any cached leaderboard for a quiz.
type RankingInvalidator interface {
	InvalidateRankings(ctx context.Context, quizID string)
}

// RankingService serves the two leaderboard views and settles prizes.
type RankingService interface {
	RankingInvalidator

	// GetRankings returns completed attempts in leaderboard order.
	GetRankings(ctx context.Context, actor Actor, quizID string, limit int) (*RankingResponse, error)
	// GetAttempts returns every ledger entry for the quiz for its owner.
	GetAttempts(ctx context.Context, actor Actor, quizID string) (*AttemptsViewResponse, error)

	PreviewPrizes(ctx context.Context, actor Actor, quizID string) (*PrizeBreakdown, error)
	DeclareWinners(ctx context.Context, actor Actor, quizID string) (*WinnersResponse, error)
}

// rankingSnapshot is the cached, unlimited leaderboard of one quiz.
type rankingSnapshot struct {
	Quiz       RankingQuiz       `json:"quiz"`
	Entries    []RankingEntry    `json:"entries"`
	Statistics RankingStatistics `json:"statistics"`
}

type rankingService struct {
	quizzes  repositories.QuizRepository
	attempts repositories.AttemptRepository
	users    repositories.UserRepository
	cache    cache.CacheService
	cacheTTL time.Duration
	prizes   *PrizeCalculator
	clock    Clock
	notifier NotificationEventService
	logger   *slog.Logger
	ops      *ServiceLogger
	sf       singleflight.Group

	// generations counts invalidations per quiz so a rebuild that raced one
	// never writes its snapshot back.
	generations sync.Map
}

// NewRankingService wires the ranking views. A nil cache makes every read go
// to the store.
func NewRankingService(
	quizzes repositories.QuizRepository,
	attempts repositories.AttemptRepository,
	users repositories.UserRepository,
	cacheService cache.CacheService,
	cacheTTL time.Duration,
	prizes *PrizeCalculator,
	clock Clock,
	notifier NotificationEventService,
	logger *slog.Logger,
) RankingService {
	return &rankingService{
		quizzes:  quizzes,
		attempts: attempts,
		users:    users,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		prizes:   prizes,
		clock:    clock,
		notifier: notifier,
		logger:   logger,
		ops:      NewServiceLogger(logger, "ranking"),
	}
}

func rankingCacheKey(quizID string) string {
	return "quiz:rankings:" + quizID
}

// ===== VIEWS =====

func (s *rankingService) GetRankings(ctx context.Context, actor Actor, quizID string, limit int) (*RankingResponse, error) {
	snapshot, err := s.snapshot(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return &RankingResponse{
		Quiz:       snapshot.Quiz,
		Rankings:   LimitRankings(snapshot.Entries, limit),
		Statistics: snapshot.Statistics,
	}, nil
}

func (s *rankingService) GetAttempts(ctx context.Context, actor Actor, quizID string) (*AttemptsViewResponse, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(quiz) {
		return nil, NewPermissionError(actor.UserID, quizID, "quiz", "view attempts", "not the quiz owner")
	}

	attempts, err := s.attempts.ListByQuiz(ctx, quizID, repositories.AttemptFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	SortAttemptsView(attempts)

	names := s.resolveNames(ctx, attempts)
	resp := &AttemptsViewResponse{
		Quiz:     toRankingQuiz(quiz),
		Attempts: make([]AttemptViewEntry, 0, len(attempts)),
		Total:    len(attempts),
	}
	for _, a := range attempts {
		name := names[a.StudentID]
		if name == "" {
			name = a.StudentID
		}
		resp.Attempts = append(resp.Attempts, AttemptViewEntry{
			AttemptResponse: toAttemptResponse(a),
			StudentName:     name,
		})
	}
	return resp, nil
}

// ===== PRIZES =====

func (s *rankingService) PreviewPrizes(ctx context.Context, actor Actor, quizID string) (*PrizeBreakdown, error) {
	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return &PrizeBreakdown{
		QuizID:         quiz.ID,
		PrizePool:      quiz.PrizePool,
		Commission:     quiz.PlatformCommission,
		CommissionMode: s.prizes.Mode(),
		Payouts:        s.prizes.Distribute(quiz.PrizePool, quiz.PrizeDistribution, quiz.PlatformCommission),
	}, nil
}

// DeclareWinners settles an ended quiz once. The top ranks of a fresh
// leaderboard are stored as unpaid winners and announced to the payment
// consumer.
func (s *rankingService) DeclareWinners(ctx context.Context, actor Actor, quizID string) (resp *WinnersResponse, err error) {
	op := s.ops.WithOperation(ctx, "declare_winners", actor.UserID)
	defer func() { op.LogResult(quizID, "quiz", err) }()

	quiz, err := s.getQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(quiz) {
		return nil, NewPermissionError(actor.UserID, quizID, "quiz", "declare winners", "not the quiz owner")
	}
	switch quiz.Phase(s.clock.Now()) {
	case models.PhaseEnded:
	case models.PhaseInvalid:
		return nil, ErrQuizScheduleInvalid
	default:
		return nil, ErrQuizNotEnded
	}
	if quiz.WinnersDeclared {
		return nil, ErrWinnersAlreadyDeclared
	}

	snapshot, err := s.build(ctx, quiz)
	if err != nil {
		return nil, err
	}

	top := LimitRankings(snapshot.Entries, PrizeRanks)
	winners := make([]models.Winner, 0, len(top))
	for _, e := range top {
		winners = append(winners, models.Winner{
			StudentID: e.StudentID,
			Rank:      e.Rank,
			Score:     e.Score,
			Prize:     s.prizes.Amount(quiz.PrizePool, quiz.PrizeDistribution, quiz.PlatformCommission, e.Rank),
			IsPaid:    false,
		})
	}

	if err := s.quizzes.DeclareWinners(ctx, quizID, winners); err != nil {
		switch {
		case errors.Is(err, repositories.ErrWinnersDeclared):
			return nil, ErrWinnersAlreadyDeclared
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to declare winners: %w", err)
	}

	if err := s.notifier.NotifyWinnersDeclared(ctx, quiz, winners); err != nil {
		s.logger.Warn("Failed to publish winner declared events", "quiz_id", quizID, "error", err)
	}

	s.logger.Info("Winners declared",
		"quiz_id", quizID,
		"declared_by", actor.UserID,
		"winners", len(winners))

	return &WinnersResponse{QuizID: quizID, Winners: winners}, nil
}

// ===== CACHE =====

func (s *rankingService) InvalidateRankings(ctx context.Context, quizID string) {
	s.generation(quizID).Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, rankingCacheKey(quizID)); err != nil {
		s.logger.Warn("Failed to invalidate rankings cache", "quiz_id", quizID, "error", err)
	}
}

func (s *rankingService) generation(quizID string) *atomic.Uint64 {
	v, _ := s.generations.LoadOrStore(quizID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// snapshot reads the cached leaderboard, rebuilding it on a miss. Concurrent
// misses for one quiz share a single rebuild unless an invalidation lands
// between them. A rebuild that overlapped an invalidation is served but not
// cached. Other instances sharing the cache can still race this way, which the
// TTL bounds.
func (s *rankingService) snapshot(ctx context.Context, quizID string) (*rankingSnapshot, error) {
	gen := s.generation(quizID)
	seen := gen.Load()
	if cached, ok := s.cached(ctx, quizID); ok {
		return cached, nil
	}

	key := quizID + "#" + strconv.FormatUint(seen, 10)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if cached, ok := s.cached(ctx, quizID); ok {
			return cached, nil
		}

		quiz, err := s.getQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		snapshot, err := s.build(ctx, quiz)
		if err != nil {
			return nil, err
		}

		if s.cache != nil && gen.Load() == seen {
			if err := s.cache.Set(ctx, rankingCacheKey(quizID), snapshot, s.cacheTTL); err != nil {
				s.logger.Warn("Failed to cache rankings", "quiz_id", quizID, "error", err)
			}
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*rankingSnapshot), nil
}

func (s *rankingService) cached(ctx context.Context, quizID string) (*rankingSnapshot, bool) {
	if s.cache == nil {
		return nil, false
	}
	var snapshot rankingSnapshot
	if err := s.cache.Get(ctx, rankingCacheKey(quizID), &snapshot); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Failed to read rankings cache", "quiz_id", quizID, "error", err)
		}
		return nil, false
	}
	return &snapshot, true
}

func (s *rankingService) build(ctx context.Context, quiz *models.Quiz) (*rankingSnapshot, error) {
	attempts, err := s.attempts.ListByQuiz(ctx, quiz.ID, repositories.AttemptFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	entries, stats := BuildRankings(attempts, s.resolveNames(ctx, completedOnly(attempts)), 0)
	return &rankingSnapshot{
		Quiz:       toRankingQuiz(quiz),
		Entries:    entries,
		Statistics: stats,
	}, nil
}

func completedOnly(attempts []*models.Attempt) []*models.Attempt {
	out := make([]*models.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.IsCompleted() {
			out = append(out, a)
		}
	}
	return out
}

// resolveNames looks up display names. A directory failure degrades to ids.
func (s *rankingService) resolveNames(ctx context.Context, attempts []*models.Attempt) map[string]string {
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.StudentID)
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 || s.users == nil {
		return names
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve student names", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names
}

func (s *rankingService) getQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}
