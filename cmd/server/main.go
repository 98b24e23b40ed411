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

	"github.com/JonMunkholm/mapload/internal/config"
	"github.com/JonMunkholm/mapload/internal/core"
	"github.com/JonMunkholm/mapload/internal/logging"
	"github.com/JonMunkholm/mapload/internal/parse"
	"github.com/JonMunkholm/mapload/internal/process"
	"github.com/JonMunkholm/mapload/internal/store"
	"github.com/JonMunkholm/mapload/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	sessions, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	loader, err := core.NewLoader(core.LoaderOptions{
		Parser:          parse.New(),
		Processors:      process.Defaults(),
		Logger:          logger,
		StreamThreshold: cfg.Ingest.StreamThreshold,
		ChunkSize:       cfg.Ingest.ChunkSize,
		CSVBatchSize:    cfg.Ingest.CSVBatchSize,
		MaxFileSize:     cfg.Ingest.MaxFileSize,
		MaxConcurrent:   cfg.Ingest.MaxConcurrent,
	})
	if err != nil {
		slog.Error("failed to create loader", "error", err)
		os.Exit(1)
	}

	limiter := core.NewLoadLimiter(cfg.Ingest.MaxRequests, cfg.Ingest.MaxWaitTime)
	service := core.NewService(loader, sessions, limiter, cfg.Ingest.Timeout)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active loads to complete (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for loads to complete", "active", status.Active)
			if err := service.WaitForLoads(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore returns a PostgreSQL store when a database URL is configured
// and an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (core.SessionStore, func(), error) {
	if cfg.Database.URL == "" {
		slog.Info("no database configured, keeping sessions in memory")
		return store.NewMemoryStore(), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
