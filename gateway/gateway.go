// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/store"
)

const (
	// MaxRooms bounds how many polls one session may watch at once.
	MaxRooms = 16

	defaultQueueSize = 64
	resolveTimeout   = 5 * time.Second
)

// Resolver maps a poll id or slug to the poll.
type Resolver interface {
	Resolve(ctx context.Context, pollKey string) (models.Poll, error)
}

type Config struct {
	PingInterval      time.Duration
	DisconnectTimeout time.Duration
	AllowedOrigins    []string
	QueueSize         int
}

// Gateway is the boundary between client transports and the engine. Both
// the WebSocket and the SSE transport use the same session lifecycle:
// open, join/leave, close.
type Gateway struct {
	resolver Resolver
	registry *presence.Registry
	hub      *hub.Hub
	cfg      Config
	logger   *slog.Logger
}

func New(resolver Resolver, registry *presence.Registry, h *hub.Hub, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 5 * time.Second
	}
	if cfg.DisconnectTimeout <= cfg.PingInterval {
		cfg.DisconnectTimeout = 2 * cfg.PingInterval
	}
	return &Gateway{
		resolver: resolver,
		registry: registry,
		hub:      h,
		cfg:      cfg,
		logger:   logger,
	}
}

func (g *Gateway) open() *Session {
	s := newSession(g.cfg.QueueSize)
	g.hub.Attach(s)
	return s
}

// close ends the session and removes it from every room it joined. Safe to
// call more than once.
func (g *Gateway) close(s *Session, reason string) {
	if !s.markClosed() {
		return
	}
	left := g.registry.OnDisconnect(s.id)
	g.hub.Detach(s.id)
	g.logger.Debug("session closed", "session_id", s.id, "reason", reason, "rooms", len(left))
}

// join resolves pollKey and adds the session to its room. Failures are
// reported to the client as error frames.
func (g *Gateway) join(ctx context.Context, s *Session, pollKey string) {
	poll, ok := g.resolve(ctx, s, pollKey)
	if !ok {
		return
	}
	g.joinPoll(s, poll.ID)
}

func (g *Gateway) joinPoll(s *Session, pollID string) bool {
	rooms := g.registry.Rooms(s.id)
	if len(rooms) >= MaxRooms && !contains(rooms, pollID) {
		s.Send(errorFrame(pollID, models.ErrCodeInvalidRequest, "too many rooms"))
		return false
	}

	joined := s.whileOpen(func() {
		g.registry.Join(pollID, s.id)
	})
	if joined {
		g.hub.SendState(pollID, s.id)
	}
	return joined
}

func (g *Gateway) leave(ctx context.Context, s *Session, pollKey string) {
	// rooms are keyed by poll id; only slugs need a lookup
	if contains(g.registry.Rooms(s.id), pollKey) {
		g.registry.Leave(pollKey, s.id)
		return
	}
	poll, ok := g.resolve(ctx, s, pollKey)
	if !ok {
		return
	}
	g.registry.Leave(poll.ID, s.id)
}

func (g *Gateway) resolve(ctx context.Context, s *Session, pollKey string) (models.Poll, bool) {
	if pollKey == "" {
		s.Send(errorFrame("", models.ErrCodeInvalidRequest, "pollId is required"))
		return models.Poll{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	poll, err := g.resolver.Resolve(ctx, pollKey)
	if errors.Is(err, store.ErrNotFound) {
		s.Send(errorFrame(pollKey, models.ErrCodePollNotFound, ""))
		return models.Poll{}, false
	}
	if err != nil {
		g.logger.Error("failed to resolve poll", "error", err, "poll_id", pollKey, "session_id", s.id)
		s.Send(errorFrame(pollKey, models.ErrCodeInternal, ""))
		return models.Poll{}, false
	}
	return poll, true
}

func errorFrame(pollID, code, message string) models.Envelope {
	return models.Envelope{
		Type:   models.MessageError,
		PollID: pollID,
		Data:   models.ErrorResponse{Error: code, Message: message},
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
