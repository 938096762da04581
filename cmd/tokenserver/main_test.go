package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	apiclient "github.com/splax/tokenlogin/pkg/api/client"
	"github.com/splax/tokenlogin/pkg/config"
	"github.com/splax/tokenlogin/pkg/logger"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Environment:     "test",
		JWTSecret:       "test-secret",
		TokenTTL:        time.Minute,
		TokenKeyword:    "Bearer",
		RateLimitLogin:  100,
		RateLimitWindow: time.Minute,
		SeedUsers:       []config.SeedUser{{Username: "alice", Password: "secret"}},
		LogLevel:        "error",
	}
}

func TestServeIssuesTokensUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testConfig(), logger.NewWithWriter(io.Discard, "tokenserver", config.ParseLevel("error")), ln)
	}()

	waitHealthy(t, base+"/healthz")

	cli, err := apiclient.New(base + "/api/auth/token/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	data, err := cli.ObtainToken(context.Background(), apiclient.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("obtain token: %v", err)
	}
	if token, ok := apiclient.Token(data); !ok || token == "" {
		t.Fatalf("expected token, got %v", data)
	}
	if _, err := cli.ObtainToken(context.Background(), apiclient.Credentials{Username: "alice", Password: "wrong"}); err == nil {
		t.Fatal("expected bad credentials to fail")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRunRejectsBadAddress(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "256.0.0.1:bad"
	if err := run(context.Background(), cfg, logger.NewWithWriter(io.Discard, "tokenserver", config.ParseLevel("error"))); err == nil {
		t.Fatal("expected listen error")
	}
}

func waitHealthy(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never became healthy", url)
}
