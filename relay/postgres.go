// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package relay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/livepoll/metrics"
)

const listenerPing = 90 * time.Second

// Postgres relays votes with NOTIFY/LISTEN on the application database, so
// multi-instance deployments need no extra infrastructure.
type Postgres struct {
	db      *sql.DB
	url     string
	channel string
	logger  *slog.Logger
}

func NewPostgres(db *sql.DB, url, channel string, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Postgres{db: db, url: url, channel: channel, logger: logger}
}

func (p *Postgres) Publish(ctx context.Context, pollID string) error {
	if _, err := p.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, pollID); err != nil {
		return fmt.Errorf("failed to notify vote: %w", err)
	}
	metrics.RelayMessages.WithLabelValues("postgres", "out").Inc()
	return nil
}

func (p *Postgres) Listen(ctx context.Context, fn Handler) error {
	listener := pq.NewListener(p.url, time.Second, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logger.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(p.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", p.channel, err)
	}
	p.logger.Info("listening for votes", "relay", "postgres", "channel", p.channel)

	ping := time.NewTicker(listenerPing)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; notifications in the gap are lost and
			// clients recover on their next refresh
			if n == nil {
				continue
			}
			metrics.RelayMessages.WithLabelValues("postgres", "in").Inc()
			fn(n.Extra)
		case <-ping.C:
			go listener.Ping()
		}
	}
}

func (p *Postgres) Close() error { return nil }
