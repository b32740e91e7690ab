package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ServiceManager exposes every service to the transport layer.
type ServiceManager interface {
	Quiz() QuizService
	Attempt() AttemptService
	Ranking() RankingService
	Export() ExportService
	User() UserService
	Notification() NotificationEventService
}

// Dependencies are the collaborators shared by all services. Cache may be nil.
type Dependencies struct {
	Quizzes   repositories.QuizRepository
	Attempts  repositories.AttemptRepository
	Users     repositories.UserRepository
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Validator *validator.Validator
	Clock     Clock
	Logger    *slog.Logger

	RankingCacheTTL     time.Duration
	PrizeCommissionMode string
}

type serviceManager struct {
	quiz         QuizService
	attempt      AttemptService
	ranking      RankingService
	export       ExportService
	user         UserService
	notification NotificationEventService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}

	notification := NewNotificationEventService(deps.Publisher, deps.Clock, deps.Logger)
	ranking := NewRankingService(
		deps.Quizzes,
		deps.Attempts,
		deps.Users,
		deps.Cache,
		deps.RankingCacheTTL,
		NewPrizeCalculator(deps.PrizeCommissionMode),
		deps.Clock,
		notification,
		deps.Logger,
	)

	return &serviceManager{
		quiz:         NewQuizService(deps.Quizzes, deps.Attempts, deps.Validator, deps.Clock, notification, ranking, deps.Logger),
		attempt:      NewAttemptService(deps.Quizzes, deps.Attempts, deps.Validator, deps.Clock, notification, ranking, deps.Logger),
		ranking:      ranking,
		export:       NewExportService(deps.Quizzes, ranking, deps.Logger),
		user:         NewUserService(deps.Users, deps.Clock, deps.Logger),
		notification: notification,
	}
}

func (m *serviceManager) Quiz() QuizService                      { return m.quiz }
func (m *serviceManager) Attempt() AttemptService                { return m.attempt }
func (m *serviceManager) Ranking() RankingService                { return m.ranking }
func (m *serviceManager) Export() ExportService                  { return m.export }
func (m *serviceManager) User() UserService                      { return m.user }
func (m *serviceManager) Notification() NotificationEventService { return m.notification }
