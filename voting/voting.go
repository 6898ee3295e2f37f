// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/livepoll/admission"
	"github.com/danielhkuo/livepoll/counter"
	"github.com/danielhkuo/livepoll/keylock"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/reconcile"
	"github.com/danielhkuo/livepoll/store"
)

const publishTimeout = 5 * time.Second

// Publisher announces a new vote to every server process.
type Publisher interface {
	Publish(ctx context.Context, pollID string) error
}

type StateReader interface {
	PollState(ctx context.Context, pollID string) (models.PollState, error)
}

type PresenceCounter interface {
	Count(pollID string) int
}

type Deps struct {
	Gate       *admission.Gate
	Counter    *counter.Counter
	Locks      *keylock.Map // shared with the Reconciler
	States     StateReader
	Presence   PresenceCounter
	Publisher  Publisher
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger
}

// Service runs a vote from admission through counting to broadcast.
type Service struct {
	gate       *admission.Gate
	counter    *counter.Counter
	locks      *keylock.Map
	states     StateReader
	presence   PresenceCounter
	publisher  Publisher
	reconciler *reconcile.Reconciler
	logger     *slog.Logger

	// Now is replaceable in tests.
	Now func() time.Time

	inflight sync.WaitGroup
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gate:       d.Gate,
		counter:    d.Counter,
		locks:      d.Locks,
		states:     d.States,
		presence:   d.Presence,
		publisher:  d.Publisher,
		reconciler: d.Reconciler,
		logger:     logger,
		Now:        time.Now,
	}
}

// CastVote admits the vote, increments the chosen option and announces the
// change. Once admitted the vote stays admitted: an increment that still
// fails after retries is logged as counter_desync_risk and queued for
// reconciliation, and the caller still sees Admitted.
func (s *Service) CastVote(ctx context.Context, req admission.Request) (admission.Result, error) {
	poll, err := s.gate.Resolve(ctx, req.PollID)
	if errors.Is(err, store.ErrNotFound) {
		metrics.VotesTotal.WithLabelValues(admission.PollNotFound.String()).Inc()
		return admission.Result{Outcome: admission.PollNotFound}, nil
	}
	if err != nil {
		return admission.Result{}, err
	}

	unlock := s.locks.RLock(poll.ID)
	res, err := s.gate.Admit(ctx, poll, req)
	if err != nil {
		unlock()
		if errors.Is(err, admission.ErrUnconfirmed) {
			metrics.CounterDesync.Inc()
			s.logger.Error("vote write outcome unknown",
				"event", "counter_desync_risk",
				"error", err,
				"poll_id", poll.ID,
				"option_id", req.OptionID,
			)
			s.reconciler.Enqueue(poll.ID)
		}
		return admission.Result{}, err
	}
	if res.Outcome != admission.Admitted {
		unlock()
		metrics.VotesTotal.WithLabelValues(res.Outcome.String()).Inc()
		return res, nil
	}

	if _, err := s.counter.Increment(ctx, res.OptionID, res.VoteID); err != nil {
		metrics.CounterDesync.Inc()
		s.logger.Error("vote recorded but counter increment failed",
			"event", "counter_desync_risk",
			"error", err,
			"poll_id", poll.ID,
			"option_id", res.OptionID,
			"vote_id", res.VoteID,
		)
		s.reconciler.Enqueue(poll.ID)
	}
	unlock()

	metrics.VotesTotal.WithLabelValues(res.Outcome.String()).Inc()
	s.logger.Info("vote admitted", "poll_id", poll.ID, "option_id", res.OptionID, "vote_id", res.VoteID)

	s.announce(poll.ID)
	return res, nil
}

// Resolve finds a poll by id or slug.
func (s *Service) Resolve(ctx context.Context, pollKey string) (models.Poll, error) {
	return s.gate.Resolve(ctx, pollKey)
}

// VoteStatus reports whether voterIdentity has voted in the poll.
func (s *Service) VoteStatus(ctx context.Context, pollKey, voterIdentity string) (models.VoteStatusResponse, error) {
	return s.gate.Lookup(ctx, pollKey, voterIdentity)
}

// PollState returns the full state a client pulls on load or reconnect.
func (s *Service) PollState(ctx context.Context, pollKey string) (models.PollState, error) {
	poll, err := s.gate.Resolve(ctx, pollKey)
	if err != nil {
		return models.PollState{}, err
	}

	state, err := s.states.PollState(ctx, poll.ID)
	if err != nil {
		return models.PollState{}, err
	}
	state.Status = lifecycle.Evaluate(poll, s.Now()).String()
	state.PresenceCount = s.presence.Count(poll.ID)
	return state, nil
}

// Reconcile recounts a poll's options from the ledger on demand.
func (s *Service) Reconcile(ctx context.Context, pollKey string) (models.ReconcileResponse, error) {
	poll, err := s.gate.Resolve(ctx, pollKey)
	if err != nil {
		return models.ReconcileResponse{}, err
	}

	corrected, err := s.reconciler.Reconcile(ctx, poll.ID)
	if err != nil {
		return models.ReconcileResponse{}, err
	}
	return models.ReconcileResponse{PollID: poll.ID, Corrected: corrected}, nil
}

// Wait blocks until in-flight announcements finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// announce publishes without holding up the vote response.
func (s *Service) announce(pollID string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, pollID); err != nil {
			s.logger.Error("failed to publish vote", "error", err, "poll_id", pollID)
		}
	}()
}
