package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/quiz-service/internal/auth"
	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/handlers"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/pkg"
)

type serveOptions struct {
	port     string
	inMemory bool
	migrate  bool
}

// NewServeCmd builds the subcommand that runs the HTTP API.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.port, "port", "", "port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&opts.inMemory, "memory", false, "keep all data in process memory instead of PostgreSQL")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func runServer(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Environment)
	slogger := logger.Slog()

	deps := services.Dependencies{
		Logger:              slogger,
		RankingCacheTTL:     cfg.RankingCacheTTL,
		PrizeCommissionMode: cfg.PrizeCommissionMode,
	}

	if opts.inMemory {
		logger.Warn("Running with in-memory storage; data is lost on exit")
		deps.Quizzes = memory.NewQuizRepository()
		deps.Attempts = memory.NewAttemptRepository()
		deps.Users = memory.NewUserRepository()
	} else {
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if opts.migrate {
			if err := postgres.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		deps.Quizzes = postgres.NewQuizPostgreSQL(db)
		deps.Attempts = postgres.NewAttemptPostgreSQL(db)
		deps.Users = postgres.NewUserPostgreSQL(db)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Ranking cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		deps.Cache = cache.NewRedisCache(redisClient, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()
	deps.Publisher = publisher

	manager := services.NewServiceManager(deps)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))

	handlers.NewHandlerManager(manager, auth.NewAuthenticator(cfg), logger, cfg.IsProduction()).SetupRoutes(router)

	port := opts.port
	if port == "" {
		port = cfg.Port
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting quiz service",
			"port", port,
			"environment", cfg.Environment,
			"auth_mode", cfg.AuthMode,
			"in_memory", opts.inMemory)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
		logger.Info("Shutting down server")
	case <-ctx.Done():
		logger.Info("Context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
