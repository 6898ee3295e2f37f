// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/engine"
	"github.com/danielhkuo/livepoll/relay"
	"github.com/danielhkuo/livepoll/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		logger.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Database schema ready", "type", cfg.DatabaseType)

	rl, err := newRelay(ctx, cfg, dbConn, logger)
	if err != nil {
		logger.Error("relay setup failed", "error", err, "relay", cfg.Relay)
		os.Exit(1)
	}

	e := engine.New(dbConn, rl, engine.Options{Logger: logger})
	e.Start(ctx, cfg.ReconcileInterval)

	server := http.Server{
		Handler:           router.NewRouter(e, cfg, logger),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown incomplete", "error", err)
			server.Close()
		}
	}()

	logger.Info("Listening", "port", cfg.Port, "relay", cfg.Relay)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server closed", "error", err)
	} else {
		logger.Info("Server closed")
	}

	// hijacked WebSocket connections are not tracked by Shutdown
	stop()
	e.Close()
}

// newLogger writes text to a terminal and JSON everywhere else.
func newLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newRelay(ctx context.Context, cfg cliparse.Config, dbConn *sql.DB, logger *slog.Logger) (relay.Relay, error) {
	switch cfg.Relay {
	case cliparse.RelayRedis:
		r, err := relay.NewRedis(ctx, cfg.RedisURL, relay.DefaultChannel, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case cliparse.RelayPostgres:
		return relay.NewPostgres(dbConn, cfg.DatabaseURL, relay.DefaultChannel, logger), nil
	default:
		return relay.NewLocal(), nil
	}
}
