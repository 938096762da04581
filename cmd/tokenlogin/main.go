package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/splax/tokenlogin/internal/form"
	"github.com/splax/tokenlogin/internal/login"
	apiclient "github.com/splax/tokenlogin/pkg/api/client"
	"github.com/splax/tokenlogin/pkg/config"
	"github.com/splax/tokenlogin/pkg/logger"
)

var buildVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run returns ctx.Err() when ctx is cancelled before every submission has
// been reported. Requests still in flight are abandoned.
func run(ctx context.Context, args []string, stdin *os.File, stdout io.Writer) error {
	cfg := config.LoadClientConfig()

	fs := flag.NewFlagSet("tokenlogin", flag.ContinueOnError)
	endpoint := fs.String("endpoint", cfg.Endpoint, "Token endpoint URL")
	username := fs.String("username", "", "Username (prompted when omitted)")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	repeat := fs.Int("repeat", 1, "Number of submissions to fire without waiting")
	timeout := fs.Duration("timeout", cfg.Timeout, "Per-request timeout (0 waits on transport defaults)")
	metricsFile := fs.String("metrics-file", "", "Write submission metrics in Prometheus text format to this file")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, strings.TrimSpace(buildVersion))
		return nil
	}
	if *repeat < 1 {
		return errors.New("--repeat must be at least 1")
	}

	user := *username
	if user == "" {
		fmt.Fprint(stdout, "Username: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read username: %w", err)
		}
		user = strings.TrimRight(line, "\r\n")
	}
	secret := *password
	if secret == "" {
		fmt.Fprint(stdout, "Password: ")
		bytes, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprint(stdout, "\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	log := logger.New("tokenlogin", config.ParseLevel(cfg.LogLevel))
	client, err := apiclient.New(*endpoint, apiclient.WithTimeout(*timeout))
	if err != nil {
		return err
	}

	doc, _, userField, passField := form.LoginPage(cfg.FormID, cfg.UsernameField, cfg.PasswordField)
	userField.Set(user)
	passField.Set(secret)

	loginForm, err := doc.Form(cfg.FormID)
	if err != nil {
		return err
	}
	usernameInput, err := doc.Field(cfg.UsernameField)
	if err != nil {
		return err
	}
	passwordInput, err := doc.Field(cfg.PasswordField)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	handler := login.NewHandler(
		login.Fields{Username: usernameInput, Password: passwordInput},
		client,
		login.NewSlogSink(log),
		login.WithMetrics(login.NewMetrics(registry)),
	)

	var pending []<-chan login.Result
	loginForm.AddSubmitListener(func(ctx context.Context, ev *form.SubmitEvent) {
		pending = append(pending, handler.Handle(ctx, ev))
	})

	log.Debug("submitting login form", "endpoint", client.Endpoint(), "submissions", *repeat)
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		loginForm.Submit(ctx)
	}

	failed := 0
	for i, ch := range pending {
		select {
		case res := <-ch:
			if res.Err != nil {
				failed++
			}
		case <-ctx.Done():
			log.Warn("login form submissions interrupted", "pending", len(pending)-i)
			return fmt.Errorf("interrupted with %d of %d submissions pending: %w", len(pending)-i, len(pending), ctx.Err())
		}
	}
	handler.Wait()
	log.Debug("login form submissions finished", "failed", failed, "elapsed_ms", time.Since(start).Milliseconds())
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", failed, len(pending))
	}
	return nil
}
