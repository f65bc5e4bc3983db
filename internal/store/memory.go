package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marketloom/user-api/internal/models"
)

// MemoryStore is an in-process UserStore used for local development
// (STORE_BACKEND=memory) and handler tests. It enforces the same email
// uniqueness contract as the DynamoDB store, with a mutex standing in
// for the backend's atomic conditional writes.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	emailIdx map[string]string // lowercased email -> user id
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		emailIdx: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.emailIdx[key]; exists {
		return ErrEmailExists
	}

	s.users[user.UserID] = *user
	s.emailIdx[key] = user.UserID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIdx[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) UpdateByID(_ context.Context, id string, patch UserPatch) (UpdateResult, error) {
	if patch.Empty() {
		return UpdateResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return UpdateResult{}, nil
	}

	modified := false

	if patch.Email != nil && !strings.EqualFold(*patch.Email, user.Email) {
		newKey := strings.ToLower(*patch.Email)
		if owner, exists := s.emailIdx[newKey]; exists && owner != id {
			return UpdateResult{}, ErrEmailExists
		}
		delete(s.emailIdx, strings.ToLower(user.Email))
		s.emailIdx[newKey] = id
		user.Email = *patch.Email
		modified = true
	}
	if patch.Username != nil && *patch.Username != user.Username {
		user.Username = *patch.Username
		modified = true
	}
	if patch.PasswordHash != nil && *patch.PasswordHash != user.PasswordHash {
		user.PasswordHash = *patch.PasswordHash
		modified = true
	}
	if patch.ProfilePicURL != nil && *patch.ProfilePicURL != user.ProfilePicURL {
		user.ProfilePicURL = *patch.ProfilePicURL
		modified = true
	}
	if patch.Reviews != nil {
		user.Reviews = patch.Reviews
		modified = true
	}
	if patch.LikedProducts != nil {
		user.LikedProducts = patch.LikedProducts
		modified = true
	}
	if patch.Roles != nil {
		user.Roles = patch.Roles
		modified = true
	}

	if modified {
		user.UpdatedAt = time.Now().UTC()
		s.users[id] = user
	}

	return UpdateResult{Matched: true, Modified: modified}, nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return false, nil
	}

	delete(s.users, id)
	delete(s.emailIdx, strings.ToLower(user.Email))
	return true, nil
}
