// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package counter owns mutation of option vote counts.
//
// Increment serializes callers per option inside the process and delegates the
// read-and-add to a single atomic store statement, so counts are exact across
// processes too. Once called it runs to completion even if the caller's
// context is cancelled: the ledger record already exists, and an undercount
// is worse than a late response.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/retry"
	"github.com/danielhkuo/livepoll/store"
)

// MaxDuration bounds one Increment including retries.
const MaxDuration = 10 * time.Second

type Store interface {
	IncrementOption(ctx context.Context, optionID, voteID string) (int64, error)
}

type Counter struct {
	store  Store
	locks  *keylock.Map
	policy retry.Policy
	logger *slog.Logger
}

func New(s Store, policy retry.Policy, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{
		store:  s,
		locks:  keylock.New(),
		policy: policy,
		logger: logger,
	}
}

// Increment adds one to optionID's count and returns the new value, or
// store.ErrNotFound when the option does not exist. voteID names the ledger
// record being counted; a record that was already counted is not counted
// again, which keeps retries and reconciliation from double counting. An
// empty voteID increments unconditionally.
func (c *Counter) Increment(ctx context.Context, optionID, voteID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), MaxDuration)
	defer cancel()

	unlock := c.locks.Lock(optionID)
	defer unlock()

	var count int64
	err := c.policy.Do(ctx, func() error {
		var err error
		count, err = c.store.IncrementOption(ctx, optionID, voteID)
		if errors.Is(err, store.ErrNotFound) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		metrics.StoreRetries.WithLabelValues("counter").Inc()
		c.logger.Warn("retrying counter increment", "error", err, "option_id", optionID, "wait", wait)
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment option %s: %w", optionID, err)
	}
	return count, nil
}
