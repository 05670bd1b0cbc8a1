package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sales-ai-analyst/internal/auth"
	"github.com/JonMunkholm/sales-ai-analyst/internal/config"
	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/store"
	"github.com/JonMunkholm/sales-ai-analyst/internal/web"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"login", cfg.Auth.LoginURL != "",
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	opts := core.Options{
		Sessions:      core.NewSessionStore(cfg.Auth.SessionTTL),
		Limiter:       core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Samples:       core.NewSampleCatalog(sampleSource(cfg.Samples), cfg.Upload.MaxFileSize),
		MaxFileSize:   cfg.Upload.MaxFileSize,
		UploadTimeout: cfg.Upload.Timeout,
	}

	if cfg.Auth.LoginURL != "" {
		opts.Auth = auth.NewClient(cfg.Auth.LoginURL, cfg.Auth.Timeout)
	} else {
		slog.Info("no login URL configured, sign-in disabled")
	}

	if cfg.Database.Enabled() {
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		accounts := store.NewAccounts(pool)
		if err := accounts.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare account schema", "error", err)
			os.Exit(1)
		}
		opts.Accounts = accounts
	} else {
		slog.Info("no database configured, account details disabled")
	}

	service := core.NewService(opts)
	server := web.NewServer(cfg, service)

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.Sessions().RunSweeper(jobCtx, sessionSweepInterval)
	go func() {
		if err := service.Samples().Warm(jobCtx); err != nil {
			slog.Warn("some sample datasets are unavailable", "error", err)
		} else {
			slog.Info("sample datasets loaded")
		}
	}()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connectDB opens and verifies a pgx pool sized from config.
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// sampleSource picks where sample datasets are read from.
func sampleSource(cfg config.SamplesConfig) core.SampleSource {
	switch {
	case cfg.BaseURL != "":
		slog.Info("sample datasets from URL", "base_url", cfg.BaseURL)
		return core.NewHTTPSource(cfg.BaseURL, cfg.FetchTimeout)
	case cfg.Dir != "":
		slog.Info("sample datasets from directory", "dir", cfg.Dir)
		return core.NewDirSource(cfg.Dir)
	default:
		return core.EmbeddedSamples()
	}
}
