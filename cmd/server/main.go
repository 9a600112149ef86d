// Package main is the entry point for the ledgerweb server. It loads
// configuration, opens the session storage and the optional preference
// database, wires the shell and plugins, and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/keyxmakerx/ledgerweb/internal/app"
	"github.com/keyxmakerx/ledgerweb/internal/config"
	"github.com/keyxmakerx/ledgerweb/internal/database"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting ledgerweb",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend.URL),
		slog.String("session_storage", cfg.Session.Storage),
	)

	// --- Session Storage and Preference Database ---
	// Both connections retry with backoff, so they are opened side by side.
	var (
		rdb *redis.Client
		db  *sql.DB
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		if cfg.Session.Storage != config.StorageRedis {
			return nil
		}
		var err error
		if rdb, err = database.NewRedis(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		slog.Info("connected to Redis")
		return nil
	})
	g.Go(func() error {
		if !cfg.Database.Enabled {
			return nil
		}
		var err error
		if db, err = database.NewMariaDB(ctx, cfg.Database); err != nil {
			return fmt.Errorf("connecting to MariaDB: %w", err)
		}
		slog.Info("connected to MariaDB")
		if err := database.RunMigrations(db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Error("failed to start dependencies", slog.Any("error", err))
		closeAll(rdb, db)
		os.Exit(1)
	}
	defer closeAll(rdb, db)

	var storage session.Storage
	if rdb != nil {
		storage = session.NewRedisStorage(rdb, cfg.Session.TTL)
	} else {
		storage = session.NewMemoryStorage()
		slog.Warn("using in-memory session storage; sessions are lost on restart and not shared between instances")
	}

	// --- Create Application ---
	application := app.New(cfg, storage, rdb, db)
	if err := application.RegisterRoutes(); err != nil {
		slog.Error("failed to register routes", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Graceful Shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

func closeAll(rdb *redis.Client, db *sql.DB) {
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, production JSON for log aggregation. LOG_LEVEL
// overrides the environment's default level.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
