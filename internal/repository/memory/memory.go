package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/splax/tokenlogin/internal/domain"
	"github.com/splax/tokenlogin/internal/repository"
)

// Repository keeps accounts in process memory.
type Repository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.User
	byUsername map[string]string
	byEmail    map[string]string
}

var _ repository.UserRepository = (*Repository)(nil)

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// CreateUser stores a copy of user. Username and a non-empty email must be unique.
func (r *Repository) CreateUser(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" || user.Username == "" {
		return repository.ErrConflict
	}
	email := strings.ToLower(user.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; ok {
		return repository.ErrConflict
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return repository.ErrConflict
	}
	if email != "" {
		if _, ok := r.byEmail[email]; ok {
			return repository.ErrConflict
		}
		r.byEmail[email] = user.ID
	}
	stored := clone(user)
	r.byID[user.ID] = stored
	r.byUsername[user.Username] = user.ID
	return nil
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

// GetUserByID fetches a user by identifier.
func (r *Repository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}
