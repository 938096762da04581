package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadClientConfigDefaults(t *testing.T) {
	t.Setenv("LOGIN_ENDPOINT", DefaultLoginEndpoint)
	cfg := LoadClientConfig()
	if cfg.Endpoint != "http://localhost:8000/api/auth/token/" {
		t.Fatalf("unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("expected no timeout by default, got %s", cfg.Timeout)
	}
	if cfg.FormID != "loginForm" || cfg.UsernameField != "username" || cfg.PasswordField != "password" {
		t.Fatalf("unexpected element ids %+v", cfg)
	}
}

func TestLoadClientConfigOverrides(t *testing.T) {
	t.Setenv("LOGIN_ENDPOINT", "https://auth.example.com/token/")
	t.Setenv("LOGIN_TIMEOUT_SECONDS", "7")
	cfg := LoadClientConfig()
	if cfg.Endpoint != "https://auth.example.com/token/" {
		t.Fatalf("unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.Timeout != 7*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Timeout)
	}
}

func TestGetIntFallsBackOnInvalid(t *testing.T) {
	t.Setenv("TOKENLOGIN_TEST_INT", "not-a-number")
	if got := GetInt("TOKENLOGIN_TEST_INT", 42); got != 42 {
		t.Fatalf("expected fallback, got %d", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("TOKENLOGIN_TEST_BOOL", "true")
	if !GetBool("TOKENLOGIN_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TOKENLOGIN_TEST_BOOL", "maybe")
	if GetBool("TOKENLOGIN_TEST_BOOL", false) {
		t.Fatal("expected fallback for invalid bool")
	}
}

func TestParseSeedUsers(t *testing.T) {
	users := ParseSeedUsers(" alice:secret, bob:p:w ,broken,:nouser,")
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d (%v)", len(users), users)
	}
	if users[0].Username != "alice" || users[0].Password != "secret" {
		t.Fatalf("unexpected first user %+v", users[0])
	}
	if users[1].Username != "bob" || users[1].Password != "p:w" {
		t.Fatalf("unexpected second user %+v", users[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
