// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/retry"
	"github.com/danielhkuo/livepoll/store"
)

// WriteTimeout bounds the ledger insert and the lookup that follows it,
// including retries.
const WriteTimeout = 10 * time.Second

var (
	ErrInvalidRequest = errors.New("invalid vote request")
	// ErrUnconfirmed means the ledger insert was attempted but its outcome is
	// unknown. The record may exist without a matching increment.
	ErrUnconfirmed = errors.New("vote write unconfirmed")
)

// Ledger is the durable vote record store. Implementations report missing
// rows as store.ErrNotFound and unique violations as store.ErrDuplicateVote.
type Ledger interface {
	GetPoll(ctx context.Context, key string) (models.Poll, error)
	GetOption(ctx context.Context, optionID string) (models.Option, error)
	FindVote(ctx context.Context, pollID, voterIdentity string) (models.VoteRecord, error)
	InsertVote(ctx context.Context, vote models.VoteRecord) error
}

type Outcome int

const (
	Admitted Outcome = iota
	AlreadyVoted
	NotActive
	PollNotFound
	OptionNotFound
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case AlreadyVoted:
		return "already_voted"
	case NotActive:
		return "not_active"
	case PollNotFound:
		return "poll_not_found"
	case OptionNotFound:
		return "option_not_found"
	default:
		return "unknown"
	}
}

type Request struct {
	PollID          string // id or slug
	OptionID        string
	VoterIdentity   string
	FingerprintHash string
}

// Result describes an admission decision. OptionID is the admitted option,
// or the previously recorded option when Outcome is AlreadyVoted.
type Result struct {
	Outcome  Outcome
	Poll     models.Poll
	OptionID string
	State    lifecycle.State
	VoteID   string
}

// Gate decides whether a (poll, voter identity) pair may vote and owns the
// creation of ledger records.
type Gate struct {
	ledger Ledger
	policy retry.Policy
	logger *slog.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewGate(ledger Ledger, policy retry.Policy, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		ledger: ledger,
		policy: policy,
		logger: logger,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// Resolve finds a poll by id or slug. A missing poll is store.ErrNotFound.
func (g *Gate) Resolve(ctx context.Context, key string) (models.Poll, error) {
	var poll models.Poll
	err := g.do(ctx, func() error {
		var err error
		poll, err = g.ledger.GetPoll(ctx, key)
		return err
	})
	return poll, err
}

// TryAdmit resolves the poll and then runs Admit.
func (g *Gate) TryAdmit(ctx context.Context, req Request) (Result, error) {
	poll, err := g.Resolve(ctx, req.PollID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Outcome: PollNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return g.Admit(ctx, poll, req)
}

// Admit checks the option and voting window, then creates the ledger record.
// The pre-check is only an optimisation; the unique constraint on insert is
// what guarantees one record per voter.
func (g *Gate) Admit(ctx context.Context, poll models.Poll, req Request) (Result, error) {
	if req.OptionID == "" {
		return Result{}, fmt.Errorf("%w: optionId is required", ErrInvalidRequest)
	}
	if err := auth.ValidateVoterIdentity(req.VoterIdentity); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	res := Result{Poll: poll}

	var opt models.Option
	err := g.do(ctx, func() error {
		var err error
		opt, err = g.ledger.GetOption(ctx, req.OptionID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) || (err == nil && opt.PollID != poll.ID) {
		res.Outcome = OptionNotFound
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	res.State = lifecycle.Evaluate(poll, g.Now())
	if res.State != lifecycle.Active {
		res.Outcome = NotActive
		return res, nil
	}

	existing, err := g.findVote(ctx, poll.ID, req.VoterIdentity)
	if err == nil {
		res.Outcome = AlreadyVoted
		res.OptionID = existing.OptionID
		res.VoteID = existing.ID
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Result{}, err
	}

	vote := models.VoteRecord{
		ID:                g.NewID(),
		PollID:            poll.ID,
		OptionID:          opt.ID,
		VoterIdentity:     req.VoterIdentity,
		IPFingerprintHash: req.FingerprintHash,
		CreatedAt:         g.Now().UTC(),
	}

	// The write and its follow-up read outlive the caller.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WriteTimeout)
	defer cancel()

	err = g.do(wctx, func() error {
		return g.ledger.InsertVote(wctx, vote)
	})
	if errors.Is(err, store.ErrDuplicateVote) {
		existing, findErr := g.findVote(wctx, poll.ID, req.VoterIdentity)
		if findErr != nil {
			return Result{}, fmt.Errorf("%w: failed to read conflicting vote: %w", ErrUnconfirmed, findErr)
		}
		// A retried insert can collide with its own earlier attempt.
		if existing.ID == vote.ID {
			return g.admitted(res, vote), nil
		}
		res.Outcome = AlreadyVoted
		res.OptionID = existing.OptionID
		res.VoteID = existing.ID
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnconfirmed, err)
	}

	return g.admitted(res, vote), nil
}

// Lookup reports whether voterIdentity has a ledger record in the poll.
func (g *Gate) Lookup(ctx context.Context, pollKey, voterIdentity string) (models.VoteStatusResponse, error) {
	poll, err := g.Resolve(ctx, pollKey)
	if err != nil {
		return models.VoteStatusResponse{}, err
	}

	vote, err := g.findVote(ctx, poll.ID, voterIdentity)
	if errors.Is(err, store.ErrNotFound) {
		return models.VoteStatusResponse{HasVoted: false}, nil
	}
	if err != nil {
		return models.VoteStatusResponse{}, err
	}
	return models.VoteStatusResponse{HasVoted: true, OptionID: vote.OptionID}, nil
}

func (g *Gate) admitted(res Result, vote models.VoteRecord) Result {
	res.Outcome = Admitted
	res.OptionID = vote.OptionID
	res.VoteID = vote.ID
	return res
}

func (g *Gate) findVote(ctx context.Context, pollID, voterIdentity string) (models.VoteRecord, error) {
	var vote models.VoteRecord
	err := g.do(ctx, func() error {
		var err error
		vote, err = g.ledger.FindVote(ctx, pollID, voterIdentity)
		return err
	})
	return vote, err
}

// do retries fn on transient errors. Not-found and duplicate results are
// answers, not failures, and return immediately.
func (g *Gate) do(ctx context.Context, fn func() error) error {
	return g.policy.Do(ctx, func() error {
		err := fn()
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDuplicateVote) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		metrics.StoreRetries.WithLabelValues("ledger").Inc()
		g.logger.Warn("retrying ledger operation", "error", err, "wait", wait)
	})
}
