package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/tokenlogin/internal/domain"
	"github.com/splax/tokenlogin/internal/repository"
	"github.com/splax/tokenlogin/pkg/config"
	"github.com/splax/tokenlogin/pkg/crypto"
	jwtpkg "github.com/splax/tokenlogin/pkg/jwt"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and inactive accounts alike.
	ErrInvalidCredentials = errors.New("auth: unable to log in with provided credentials")
	// ErrUnauthorized is returned for missing or invalid bearer tokens.
	ErrUnauthorized = errors.New("auth: invalid token")
)

// Service checks credentials and issues tokens.
type Service struct {
	users    repository.UserRepository
	logger   *slog.Logger
	secret   string
	ttl      time.Duration
	hashCost int
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.ServerConfig) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{users: users, logger: logger, secret: cfg.JWTSecret, ttl: cfg.TokenTTL}
}

// WithHashCost returns a copy hashing new passwords at cost.
func (s Service) WithHashCost(cost int) Service {
	s.hashCost = cost
	return s
}

// Register creates an active account.
func (s Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("auth: username required")
	}
	var hash []byte
	var err error
	if s.hashCost > 0 {
		hash, err = crypto.HashPasswordCost(password, s.hashCost)
	} else {
		hash, err = crypto.HashPassword(password)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Seed registers each account, skipping usernames that already exist.
func (s Service) Seed(ctx context.Context, users []config.SeedUser) error {
	for _, u := range users {
		if _, err := s.Register(ctx, u.Username, "", u.Password); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				s.logger.Debug("seed user exists", "username", u.Username)
				continue
			}
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	return nil
}

// ObtainToken authenticates username/password and returns a signed token.
func (s Service) ObtainToken(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Username, s.secret, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("token issued", "user_id", user.ID)
	return token, user, nil
}

// Authorize validates a token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, ErrUnauthorized
	}
	claims, err := jwtpkg.Parse(trimmed, s.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, ErrUnauthorized
	}
	return user, claims, nil
}
