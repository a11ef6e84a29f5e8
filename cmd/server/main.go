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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/config"
	"github.com/JonMunkholm/vizboard/internal/core"
	"github.com/JonMunkholm/vizboard/internal/logging"
	"github.com/JonMunkholm/vizboard/internal/web"
)

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
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"upload_max_file_size", cfg.Upload.MaxFileSize,
		"chart_size", []int{cfg.Chart.Width, cfg.Chart.Height},
		"session_ttl", cfg.Session.TTL.String(),
		"history_db", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()

	var recorder core.UploadRecorder
	if cfg.Database.Enabled() {
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg, err := core.NewPGRecorder(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare upload history table", "error", err)
			os.Exit(1)
		}
		recorder = pg
	} else {
		slog.Info("no DATABASE_URL set, keeping upload history in memory")
	}

	renderer := chart.NewRenderer(chart.Options{
		Width:         cfg.Chart.Width,
		Height:        cfg.Chart.Height,
		HistogramBins: cfg.Chart.HistogramBins,
	})

	service := core.NewService(core.Config{
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		MaxRows:              cfg.Upload.MaxRows,
		PreviewRows:          cfg.Upload.PreviewRows,
		ChartWidth:           cfg.Chart.Width,
		ChartHeight:          cfg.Chart.Height,
	}, renderer, recorder)

	server := web.NewServer(service, cfg)

	// Background jobs stop before the server drains.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionSweeper(jobCtx, cfg.Session.SweepInterval, cfg.Session.TTL)

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

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connectDB opens and verifies the upload history pool.
func connectDB(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
