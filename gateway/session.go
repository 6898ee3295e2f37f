// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"sync"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
)

// Session is one live client connection. The hub writes to it through Send;
// the transport drains out.
type Session struct {
	id   string
	out  chan models.Envelope
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newSession(queueSize int) *Session {
	return &Session{
		id:   uuid.NewString(),
		out:  make(chan models.Envelope, queueSize),
		done: make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Send queues env without blocking. It returns false when the queue is full
// or the session has closed.
func (s *Session) Send(env models.Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.out <- env:
		return true
	default:
		return false
	}
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// markClosed flips the session to closed and reports whether this call did it.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}

// whileOpen runs fn unless the session has closed. Membership changes go
// through here so none can land after the disconnect cleanup.
func (s *Session) whileOpen(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}
