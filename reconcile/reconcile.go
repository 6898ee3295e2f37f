// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package reconcile rewrites option counters from the vote ledger.
//
// The ledger is the source of truth and vote_count a derived cache of it. An
// increment that fails after its ledger record was written leaves the cache
// one short; the voting service enqueues such polls here. Recounts take the
// poll's write lock, which the vote path holds for reading across insert and
// increment, so a recount never sees a half-applied vote from this process.
// Other processes are covered by the store: a recount marks the records it
// counts, and a later increment for a marked record is a no-op.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/metrics"
)

type Recounter interface {
	Recount(ctx context.Context, pollID string) (int64, error)
}

// Publisher announces that a poll's counts changed.
type Publisher interface {
	Publish(ctx context.Context, pollID string) error
}

type Reconciler struct {
	store     Recounter
	locks     *keylock.Map
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

func New(store Recounter, locks *keylock.Map, publisher Publisher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:     store,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		pending:   make(map[string]struct{}),
	}
}

// Enqueue schedules pollID for the next pass of Run.
func (r *Reconciler) Enqueue(pollID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[pollID] = struct{}{}
}

// Pending returns the queued poll ids, sorted.
func (r *Reconciler) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reconcile recounts one poll and returns how many options were corrected.
// Viewers are notified when anything changed.
func (r *Reconciler) Reconcile(ctx context.Context, pollID string) (int64, error) {
	unlock := r.locks.Lock(pollID)
	corrected, err := r.store.Recount(ctx, pollID)
	unlock()
	if err != nil {
		return 0, err
	}

	if corrected > 0 {
		metrics.ReconcileCorrections.Add(float64(corrected))
		r.logger.Warn("corrected vote counters from ledger",
			"event", "counter_reconciled", "poll_id", pollID, "corrected", corrected)
		if err := r.publisher.Publish(ctx, pollID); err != nil {
			r.logger.Error("failed to publish reconciled poll", "error", err, "poll_id", pollID)
		}
	}
	return corrected, nil
}

// RunOnce reconciles every queued poll. Polls that fail stay queued.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.mu.Lock()
	batch := r.pending
	r.pending = make(map[string]struct{})
	r.mu.Unlock()

	for pollID := range batch {
		if _, err := r.Reconcile(ctx, pollID); err != nil {
			r.logger.Error("failed to reconcile poll", "error", err, "poll_id", pollID)
			r.Enqueue(pollID)
		}
	}
}

// Run calls RunOnce every interval until ctx is done. A non-positive
// interval disables the loop.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
