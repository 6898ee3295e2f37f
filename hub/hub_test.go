// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/presence"
	"github.com/danielhkuo/livepoll/testutil"
)

// fakeStates returns a state whose TotalVotes grows by one per read.
type fakeStates struct {
	mu    sync.Mutex
	reads map[string]int64
	fail  bool
}

func (f *fakeStates) PollState(ctx context.Context, pollID string) (models.PollState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return models.PollState{}, errors.New("database unavailable")
	}
	if f.reads == nil {
		f.reads = map[string]int64{}
	}
	f.reads[pollID]++
	return models.PollState{
		ID:         pollID,
		Question:   "Q?",
		Options:    []models.OptionState{{ID: "a", Text: "A", VoteCount: f.reads[pollID]}},
		TotalVotes: f.reads[pollID],
	}, nil
}

func (f *fakeStates) count(pollID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[pollID]
}

func setup(t *testing.T) (*hub.Hub, *presence.Registry, *fakeStates) {
	t.Helper()
	states := &fakeStates{}
	reg := presence.NewRegistry()
	h := hub.New(states, reg, nil)
	reg.OnChange(h.NotifyPresenceChanged)
	t.Cleanup(h.Close)
	return h, reg, states
}

func join(h *hub.Hub, reg *presence.Registry, pollID, sid string) *testutil.RecordingSender {
	s := testutil.NewRecordingSender(sid)
	h.Attach(s)
	reg.Join(pollID, sid)
	return s
}

func TestNotifyVoteCastPushesStateAndActivity(t *testing.T) {
	h, reg, _ := setup(t)
	a := join(h, reg, "poll", "a")
	b := join(h, reg, "poll", "b")
	other := join(h, reg, "other", "c")

	h.NotifyVoteCast("poll")

	for _, s := range []*testutil.RecordingSender{a, b} {
		require.Eventually(t, func() bool {
			return len(s.OfType(models.MessageActivity)) == 1
		}, time.Second, 5*time.Millisecond)

		states := s.OfType(models.MessagePollState)
		require.Len(t, states, 1)
		state := states[0].Data.(models.PollState)
		require.Equal(t, models.StatusActive, state.Status)
		require.Equal(t, 2, state.PresenceCount)
		require.Equal(t, "poll", states[0].PollID)

		activity := s.OfType(models.MessageActivity)[0].Data.(models.ActivityEvent)
		require.Equal(t, models.ActivityVote, activity.Type)
		require.Contains(t, hub.ActivityColors, activity.Color)
		require.NotEmpty(t, activity.ID)
	}

	require.Empty(t, other.OfType(models.MessagePollState))
}

func TestPushOrderWithinRoom(t *testing.T) {
	h, reg, _ := setup(t)
	s := join(h, reg, "poll", "a")

	const votes = 50
	for i := 0; i < votes; i++ {
		h.NotifyVoteCast("poll")
	}

	require.Eventually(t, func() bool {
		return len(s.OfType(models.MessagePollState)) == votes
	}, 2*time.Second, 5*time.Millisecond)

	var last int64
	for _, env := range s.OfType(models.MessagePollState) {
		total := env.Data.(models.PollState).TotalVotes
		require.Greater(t, total, last, "poll-state pushes reordered")
		last = total
	}
}

func TestNotifyVoteCastSkipsEmptyRoom(t *testing.T) {
	h, _, states := setup(t)

	h.NotifyVoteCast("poll")
	time.Sleep(20 * time.Millisecond)

	require.Zero(t, states.count("poll"))
}

func TestPresencePushes(t *testing.T) {
	h, reg, _ := setup(t)
	a := join(h, reg, "poll", "a")
	join(h, reg, "poll", "b")

	require.Eventually(t, func() bool {
		msgs := a.OfType(models.MessagePresence)
		return len(msgs) > 0 && msgs[len(msgs)-1].Data.(models.PresenceUpdate).Count == 2
	}, time.Second, 5*time.Millisecond)

	reg.OnDisconnect("b")

	require.Eventually(t, func() bool {
		msgs := a.OfType(models.MessagePresence)
		return msgs[len(msgs)-1].Data.(models.PresenceUpdate).Count == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSendStateTargetsOneSession(t *testing.T) {
	h, reg, _ := setup(t)
	a := join(h, reg, "poll", "a")
	b := join(h, reg, "poll", "b")

	h.SendState("poll", "b")

	require.Eventually(t, func() bool {
		return len(b.OfType(models.MessagePollState)) == 1
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, a.OfType(models.MessagePollState))
}

func TestStateReadFailureSkipsPush(t *testing.T) {
	h, reg, states := setup(t)
	states.fail = true
	s := join(h, reg, "poll", "a")

	h.NotifyVoteCast("poll")
	h.SendState("poll", "a")
	time.Sleep(20 * time.Millisecond)

	require.Empty(t, s.OfType(models.MessagePollState))
	require.Empty(t, s.OfType(models.MessageActivity))
}

func TestDetachStopsDelivery(t *testing.T) {
	h, reg, _ := setup(t)
	s := join(h, reg, "poll", "a")
	keep := join(h, reg, "poll", "b")
	h.Detach("a")

	h.NotifyVoteCast("poll")

	require.Eventually(t, func() bool {
		return len(keep.OfType(models.MessagePollState)) == 1
	}, time.Second, 5*time.Millisecond)
	require.Empty(t, s.OfType(models.MessagePollState))
}
