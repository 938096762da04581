package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splax/tokenlogin/internal/domain"
	"github.com/splax/tokenlogin/internal/repository"
)

func TestCreateAndFetch(t *testing.T) {
	repo := New()
	ctx := context.Background()
	user := &domain.User{ID: "u1", Username: "alice", Email: "Alice@example.com", PasswordHash: []byte("hash"), IsActive: true, DateJoined: time.Now()}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("by username: %v", err)
	}
	if got.ID != "u1" || string(got.PasswordHash) != "hash" {
		t.Fatalf("unexpected user %+v", got)
	}
	got.PasswordHash[0] = 'X'
	again, _ := repo.GetUserByID(ctx, "u1")
	if string(again.PasswordHash) != "hash" {
		t.Fatal("expected stored user to be isolated from callers")
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	repo := New()
	ctx := context.Background()
	if err := repo.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateUser(ctx, &domain.User{ID: "u2", Username: "alice"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if err := repo.CreateUser(ctx, &domain.User{ID: "u3", Username: "bob", Email: "A@example.com"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if err := repo.CreateUser(ctx, &domain.User{ID: "u4", Username: "carol"}); err != nil {
		t.Fatalf("users without email should not conflict: %v", err)
	}
	if err := repo.CreateUser(ctx, &domain.User{ID: "u5", Username: "dave"}); err != nil {
		t.Fatalf("users without email should not conflict: %v", err)
	}
}

func TestLookupMissing(t *testing.T) {
	repo := New()
	if _, err := repo.GetUserByUsername(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.GetUserByID(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
