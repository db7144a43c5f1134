package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore - UserRepository в памяти для тестов
type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]models.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user %s: %w", user.Email, errs.ErrAlreadyExists)
		}
	}

	s.users[user.ID] = *user

	return nil
}

func (s *UserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
	}

	return &u, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}

	return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
}

// Delete удаляет пользователя, имитируя удаление аккаунта
func (s *UserStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
}
