// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
)

const (
	roomQueueSize = 256
	idleTimeout   = 10 * time.Second
	readTimeout   = 5 * time.Second
)

// ActivityColors is the palette activity notices pick from.
var ActivityColors = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEEAD"}

// Sender is one session's outbound side. Send must not block; it returns
// false when the push was dropped.
type Sender interface {
	ID() string
	Send(env models.Envelope) bool
}

// StateReader returns a consistent snapshot of a poll and its options.
type StateReader interface {
	PollState(ctx context.Context, pollID string) (models.PollState, error)
}

// Rooms is the membership view the hub fans out to.
type Rooms interface {
	Members(pollID string) []string
	Count(pollID string) int
}

type jobKind int

const (
	jobVote jobKind = iota
	jobPresence
	jobState
)

type job struct {
	kind   jobKind
	count  int
	target string
}

type roomWorker struct {
	jobs chan job
}

// Hub pushes poll state, activity and presence to the sessions in a room.
// Each room with pending work has one worker goroutine, so pushes for a room
// reach every member in the order they were generated.
type Hub struct {
	states StateReader
	rooms  Rooms
	logger *slog.Logger

	// Now is replaceable in tests.
	Now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	sessions map[string]Sender
	workers  map[string]*roomWorker
}

func New(states StateReader, rooms Rooms, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		states:   states,
		rooms:    rooms,
		logger:   logger,
		Now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]Sender),
		workers:  make(map[string]*roomWorker),
	}
}

// Attach makes s reachable by its session id.
func (h *Hub) Attach(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

// Detach forgets a session. Pushes already queued for it are discarded.
func (h *Hub) Detach(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// NotifyVoteCast pushes fresh poll state and an activity notice to the room.
// It returns immediately; rooms with no local members are skipped.
func (h *Hub) NotifyVoteCast(pollID string) {
	if h.rooms.Count(pollID) == 0 {
		return
	}
	h.enqueue(pollID, job{kind: jobVote})
}

// NotifyPresenceChanged pushes the room's member count. Safe to call from a
// presence.ChangeFunc.
func (h *Hub) NotifyPresenceChanged(pollID string, count int) {
	if count == 0 {
		return
	}
	h.enqueue(pollID, job{kind: jobPresence, count: count})
}

// SendState pushes the poll's current state to one session, ordered with the
// room's other pushes.
func (h *Hub) SendState(pollID, sessionID string) {
	h.enqueue(pollID, job{kind: jobState, target: sessionID})
}

// Close stops all room workers and waits for them to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
}

func (h *Hub) enqueue(pollID string, j job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	w, ok := h.workers[pollID]
	if !ok {
		w = &roomWorker{jobs: make(chan job, roomQueueSize)}
		h.workers[pollID] = w
		h.wg.Add(1)
		go h.run(pollID, w)
	}

	select {
	case w.jobs <- j:
	default:
		metrics.BroadcastsDropped.WithLabelValues("room_queue").Inc()
		h.logger.Warn("dropping broadcast for busy room", "poll_id", pollID)
	}
}

func (h *Hub) run(pollID string, w *roomWorker) {
	defer h.wg.Done()

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case j := <-w.jobs:
			h.handle(pollID, j)
			idle.Reset(idleTimeout)
		case <-idle.C:
			h.mu.Lock()
			if len(w.jobs) == 0 {
				delete(h.workers, pollID)
				h.mu.Unlock()
				return
			}
			h.mu.Unlock()
			idle.Reset(idleTimeout)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(pollID string, j job) {
	switch j.kind {
	case jobVote:
		targets := h.senders(h.rooms.Members(pollID))
		if len(targets) == 0 {
			return
		}
		state, ok := h.readState(pollID)
		if !ok {
			return
		}
		h.deliver(targets, models.Envelope{Type: models.MessagePollState, PollID: pollID, Data: state})
		h.deliver(targets, models.Envelope{Type: models.MessageActivity, PollID: pollID, Data: h.activity()})

	case jobPresence:
		targets := h.senders(h.rooms.Members(pollID))
		h.deliver(targets, models.Envelope{
			Type:   models.MessagePresence,
			PollID: pollID,
			Data:   models.PresenceUpdate{Count: j.count},
		})

	case jobState:
		targets := h.senders([]string{j.target})
		if len(targets) == 0 {
			return
		}
		state, ok := h.readState(pollID)
		if !ok {
			return
		}
		h.deliver(targets, models.Envelope{Type: models.MessagePollState, PollID: pollID, Data: state})
	}
}

func (h *Hub) readState(pollID string) (models.PollState, bool) {
	ctx, cancel := context.WithTimeout(h.ctx, readTimeout)
	defer cancel()

	state, err := h.states.PollState(ctx, pollID)
	if err != nil {
		h.logger.Error("failed to read poll state", "error", err, "poll_id", pollID)
		return models.PollState{}, false
	}

	poll := models.Poll{ScheduledFor: state.ScheduledFor, ExpiresAt: state.ExpiresAt}
	state.Status = lifecycle.Evaluate(poll, h.Now()).String()
	state.PresenceCount = h.rooms.Count(pollID)
	return state, true
}

func (h *Hub) activity() models.ActivityEvent {
	now := h.Now()
	return models.ActivityEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:      models.ActivityVote,
		Text:      "Someone just voted",
		Timestamp: now.UnixMilli(),
		Color:     ActivityColors[rand.IntN(len(ActivityColors))],
	}
}

func (h *Hub) senders(ids []string) []Sender {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Sender, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) deliver(targets []Sender, env models.Envelope) {
	for _, s := range targets {
		if s.Send(env) {
			metrics.BroadcastsSent.WithLabelValues(env.Type).Inc()
		} else {
			metrics.BroadcastsDropped.WithLabelValues("session_queue").Inc()
		}
	}
}
