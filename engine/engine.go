// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package engine assembles the vote engine's components around one database
// connection and one relay.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/counter"
	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/reconcile"
	"github.com/danielhkuo/livepoll/relay"
	"github.com/danielhkuo/livepoll/retry"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/voting"
)

type Options struct {
	Retry  retry.Policy
	Logger *slog.Logger
}

type Engine struct {
	Store      *store.Store
	Registry   *presence.Registry
	Hub        *hub.Hub
	Relay      relay.Relay
	Gate       *admission.Gate
	Counter    *counter.Counter
	Reconciler *reconcile.Reconciler
	Voting     *voting.Service

	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(conn *sql.DB, rl relay.Relay, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Retry
	if policy.Attempts == 0 {
		policy = retry.Default
	}

	e := &Engine{
		Store:    store.New(conn, logger),
		Registry: presence.NewRegistry(),
		Relay:    rl,
		logger:   logger,
	}

	locks := keylock.New()
	e.Hub = hub.New(e.Store, e.Registry, logger)
	e.Registry.OnChange(e.Hub.NotifyPresenceChanged)
	e.Gate = admission.NewGate(e.Store, policy, logger)
	e.Counter = counter.New(e.Store, policy, logger)
	e.Reconciler = reconcile.New(e.Store, locks, rl, logger)
	e.Voting = voting.New(voting.Deps{
		Gate:       e.Gate,
		Counter:    e.Counter,
		Locks:      locks,
		States:     e.Store,
		Presence:   e.Registry,
		Publisher:  rl,
		Reconciler: e.Reconciler,
		Logger:     logger,
	})
	return e
}

// Start begins relaying votes to the hub and, when reconcileInterval is
// positive, the periodic reconciliation loop.
func (e *Engine) Start(ctx context.Context, reconcileInterval time.Duration) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.listen(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.Reconciler.Run(ctx, reconcileInterval)
	}()
}

// listen keeps the relay subscription alive until ctx is done.
func (e *Engine) listen(ctx context.Context) {
	for {
		err := e.Relay.Listen(ctx, e.Hub.NotifyVoteCast)
		if ctx.Err() != nil {
			return
		}
		e.logger.Error("relay listener stopped, restarting", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Close stops background work, then the hub and the relay.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.Voting.Wait()
	e.Hub.Close()
	if err := e.Relay.Close(); err != nil {
		e.logger.Warn("failed to close relay", "error", err)
	}
}
