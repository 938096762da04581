package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/splax/tokenlogin/internal/domain"
	"github.com/splax/tokenlogin/internal/repository"
	"github.com/splax/tokenlogin/internal/repository/memory"
	"github.com/splax/tokenlogin/pkg/config"
	jwtpkg "github.com/splax/tokenlogin/pkg/jwt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo repository.UserRepository) Service {
	cfg := config.ServerConfig{JWTSecret: "test-secret", TokenTTL: time.Minute}
	return New(repo, newLogger(), cfg).WithHashCost(bcrypt.MinCost)
}

func TestObtainTokenIssuesParsableToken(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()
	registered, err := svc.Register(ctx, "alice", "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, user, err := svc.ObtainToken(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("obtain token: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("unexpected user %+v", user)
	}
	claims, err := jwtpkg.Parse(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != registered.ID || claims.Username != "alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestObtainTokenRejectsBadCredentials(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.ObtainToken(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.ObtainToken(ctx, "ghost", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
	if _, _, err := svc.ObtainToken(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for empty input, got %v", err)
	}
}

func TestObtainTokenRejectsInactiveUser(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err := repo.CreateUser(context.Background(), &domain.User{ID: "u1", Username: "idle", PasswordHash: hash}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.ObtainToken(context.Background(), "idle", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected inactive user to be rejected, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.ObtainToken(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("obtain token: %v", err)
	}
	user, claims, err := svc.Authorize(ctx, " "+token+" ")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if user.Username != "alice" || claims.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, _, err := svc.Authorize(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
	if _, _, err := svc.Authorize(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestSeedSkipsExisting(t *testing.T) {
	repo := memory.New()
	svc := newService(repo)
	seed := []config.SeedUser{{Username: "alice", Password: "one"}, {Username: "bob", Password: "two"}}
	if err := svc.Seed(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.Seed(context.Background(), seed); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if _, _, err := svc.ObtainToken(context.Background(), "bob", "two"); err != nil {
		t.Fatalf("expected seeded user to log in: %v", err)
	}
}
