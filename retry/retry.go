// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package retry wraps cenkalti/backoff with the bounded policy used on the
// ledger and counter write paths.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop. Attempts counts the first call, so
// Attempts: 3 means one call plus up to two retries.
type Policy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Default retries store writes three more times over roughly half a second.
var Default = Policy{
	Attempts:        4,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     400 * time.Millisecond,
}

// Permanent marks err as not worth retrying. Do returns the unwrapped err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// exhausted, or ctx is done. onRetry, if set, is called before each wait.
func (p Policy) Do(ctx context.Context, op func() error, onRetry func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	if onRetry == nil {
		return backoff.Retry(op, policy)
	}
	return backoff.RetryNotify(op, policy, onRetry)
}
