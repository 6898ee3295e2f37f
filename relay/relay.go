// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package relay

import (
	"context"
	"sync"

	"github.com/danielhkuo/livepoll/metrics"
)

// DefaultChannel is the pub/sub channel used by the redis and postgres relays.
const DefaultChannel = "livepoll_votes"

// Handler receives the id of a poll that has a new vote.
type Handler func(pollID string)

// Relay carries "a vote was cast in poll X" between server processes. Every
// process listening, including the publisher, receives each message.
type Relay interface {
	Publish(ctx context.Context, pollID string) error
	// Listen calls fn for each message until ctx is done.
	Listen(ctx context.Context, fn Handler) error
	Close() error
}

// Local delivers messages within the process. It is the relay for single
// instance deployments.
type Local struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

func NewLocal() *Local {
	return &Local{handlers: make(map[int]Handler)}
}

func (l *Local) Publish(ctx context.Context, pollID string) error {
	metrics.RelayMessages.WithLabelValues("local", "out").Inc()

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, fn := range l.handlers {
		fn(pollID)
	}
	return nil
}

func (l *Local) Listen(ctx context.Context, fn Handler) error {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = fn
	l.mu.Unlock()

	<-ctx.Done()

	l.mu.Lock()
	delete(l.handlers, id)
	l.mu.Unlock()
	return nil
}

// Listeners reports how many Listen calls are active.
func (l *Local) Listeners() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers)
}

func (l *Local) Close() error { return nil }
