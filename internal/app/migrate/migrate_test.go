package migrate

import (
	"path/filepath"
	"testing"
)

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", "db/migrations", nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
	if _, err := New("postgres://localhost/db", "", nil); err == nil {
		t.Fatal("expected error for empty migrations dir")
	}
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := New("postgres://localhost/db", missing, nil); err == nil {
		t.Fatal("expected error for missing migrations dir")
	}
}
