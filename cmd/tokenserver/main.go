package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/splax/tokenlogin/internal/app/migrate"
	httpx "github.com/splax/tokenlogin/internal/http"
	"github.com/splax/tokenlogin/internal/repository"
	"github.com/splax/tokenlogin/internal/repository/memory"
	"github.com/splax/tokenlogin/internal/repository/postgres"
	"github.com/splax/tokenlogin/internal/service/auth"
	"github.com/splax/tokenlogin/pkg/config"
	"github.com/splax/tokenlogin/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadServerConfig()
	log := logger.New("tokenserver", config.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("token server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, log *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return serve(ctx, cfg, log, ln)
}

// serve runs the token server on ln until ctx is cancelled or the server
// fails. ln is closed on return.
func serve(ctx context.Context, cfg config.ServerConfig, log *slog.Logger, ln net.Listener) error {
	users, health, cleanup, err := openAccounts(ctx, cfg, log)
	if err != nil {
		ln.Close()
		return err
	}
	defer cleanup()

	authSvc := auth.New(users, log, cfg)
	if err := authSvc.Seed(ctx, cfg.SeedUsers); err != nil {
		ln.Close()
		return fmt.Errorf("seed users: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := httpx.NewRouter(log, authSvc, httpx.Options{
		Keyword:     cfg.TokenKeyword,
		LoginLimit:  cfg.RateLimitLogin,
		LoginWindow: cfg.RateLimitWindow,
		Limiter:     newLimiter(cfg, log),
		Health:      health,
		Registry:    registry,
	})
	defer router.Close()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("token server starting", "addr", ln.Addr().String(), "env", cfg.Environment)
		errorCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Info("token server stopped")
		return nil
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// openAccounts picks the postgres store when DATABASE_URL is set and the
// in-memory store otherwise.
func openAccounts(ctx context.Context, cfg config.ServerConfig, log *slog.Logger) (repository.UserRepository, func(context.Context) error, func(), error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		log.Info("DATABASE_URL not set, using in-memory account store")
		return memory.New(), nil, func() {}, nil
	}

	runner, err := migrate.New(dsn, cfg.MigrationsDir, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("configure migrations: %w", err)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("database ping: %w", err)
	}
	if err := runner.Ensure(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return postgres.New(pool), pool.Ping, pool.Close, nil
}

func newLimiter(cfg config.ServerConfig, log *slog.Logger) httpx.RateLimiter {
	addr := strings.TrimSpace(cfg.RateLimitRedisAddr)
	if addr == "" {
		return httpx.NewMemoryRateLimiter()
	}
	limiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
	if err != nil {
		log.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
		return httpx.NewMemoryRateLimiter()
	}
	return limiter
}
