package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// UserService keeps the local directory in step with the identity provider.
type UserService interface {
	Sync(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	users  repositories.UserRepository
	clock  Clock
	logger *slog.Logger
}

func NewUserService(users repositories.UserRepository, clock Clock, logger *slog.Logger) UserService {
	return &userService{
		users:  users,
		clock:  clock,
		logger: logger,
	}
}

// Sync upserts the caller's profile and stamps when it was last seen.
func (s *userService) Sync(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrUserNotFound
	}
	if !user.Role.Valid() {
		return ErrInvalidRole
	}
	now := s.clock.Now()
	user.LastSeenAt = &now
	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to sync user: %w", err)
	}
	return nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
