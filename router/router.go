// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/engine"
	"github.com/danielhkuo/livepoll/gateway"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/middleware"
)

const healthTimeout = 2 * time.Second

func NewRouter(e *engine.Engine, cfg cliparse.Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	voteHandler := handlers.NewVoteHandler(e.Voting, cfg, logger)
	pollHandler := handlers.NewPollHandler(e.Voting, cfg, logger)
	gw := gateway.New(e.Voting, e.Registry, e.Hub, gateway.Config{
		PingInterval:      cfg.PingInterval,
		DisconnectTimeout: cfg.DisconnectTimeout,
		AllowedOrigins:    cfg.AllowedOrigins,
	}, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Admin-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.WithLogging(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := e.Store.Ping(ctx); err != nil {
			logger.Warn("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Real-time
	r.Get("/ws", gw.ServeWS)

	r.Route("/polls/{pollId}", func(r chi.Router) {
		r.Get("/", pollHandler.GetPoll)
		r.Get("/events", gw.ServeSSE)
		r.Post("/votes", voteHandler.CastVote)
		r.Get("/votes", voteHandler.VoteStatus)
		r.Post("/reconcile", pollHandler.Reconcile)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return r
}
