package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/amqp"
	"tracker/internal/auth"
	"tracker/internal/config"
	apphttp "tracker/internal/http"
	applog "tracker/internal/log"
	"tracker/internal/services"
	"tracker/internal/session"
	"tracker/internal/storage"
)

func main() {
	// Bootstrap logger until the configured one is available.
	logger := applog.New(applog.DefaultConfig())

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		logger.ErrorContext(context.Background(), "Failed to load env file", applog.FieldError, err, "path", envFile)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	format, _ := applog.ParseFormat(cfg.LogFormat)
	logger = applog.New(applog.Config{Level: level, Format: format, Component: applog.ComponentApp, Output: os.Stdout})
	applog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "Tracker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	dialect, _, _ := storage.ParseURL(cfg.DatabaseURL)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := storage.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}

	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// Events are optional; the tracker keeps working without them.
			logger.WithComponent(applog.ComponentAMQP).WarnContext(ctx, "AMQP unavailable, events disabled",
				applog.FieldError, err)
		} else {
			publisher = client
			logger.WithComponent(applog.ComponentAMQP).InfoContext(ctx, "Publishing transaction events",
				"exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewTransactionService(store, publisher)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close service", applog.FieldError, err)
		}
	}()

	if err := svc.Prepare(ctx); err != nil {
		return err
	}

	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL)
	sessions.StartCleanup(min(cfg.SessionTTL, 10*time.Minute))
	defer sessions.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:    ":" + cfg.Port,
		Service: svc,
		Gate:    auth.NewGate(cfg.AppPassword),
		Sessions: session.NewManager(sessions, session.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionTTL,
		}),
		Logger: logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting tracker server",
			"port", cfg.Port,
			"dialect", dialect.String(),
			"amqp", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
