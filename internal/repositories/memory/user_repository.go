package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// UserRepository is an in-memory implementation of repositories.UserRepository.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

func (r *UserRepository) Upsert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := *user
	if current, ok := r.users[user.ID]; ok {
		next.CreatedAt = current.CreatedAt
		if next.FullName == "" {
			next.FullName = current.FullName
		}
		if next.Email == "" {
			next.Email = current.Email
		}
	} else {
		next.CreatedAt = time.Now()
	}
	next.UpdatedAt = time.Now()
	r.users[user.ID] = next
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			u := user
			out = append(out, &u)
		}
	}
	return out, nil
}
