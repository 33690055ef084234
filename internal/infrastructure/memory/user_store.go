// Package memory provides mutex-guarded in-memory repositories. They
// back the application-service tests and local runs without Postgres.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*entity.User)}
}

func (s *UserStore) Create(u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *UserStore) GetByEmail(email string) (*entity.User, error) {
	return s.find(func(u *entity.User) bool { return u.Email == email })
}

func (s *UserStore) GetByConfirmationCode(code string) (*entity.User, error) {
	if code == "" {
		return nil, nil
	}
	return s.find(func(u *entity.User) bool { return u.ConfirmationCode == code })
}

func (s *UserStore) GetByResetToken(tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return s.find(func(u *entity.User) bool { return u.ResetToken == tokenHash })
}

func (s *UserStore) find(match func(*entity.User) bool) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserStore) Update(u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return errNotFound
	}
	u.UpdatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errNotFound
	}
	delete(s.users, id)
	return nil
}

var _ repository.UserRepository = (*UserStore)(nil)
