// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package counter_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/livepoll/counter"
	"github.com/danielhkuo/livepoll/retry"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/testutil"
)

var fastRetry = retry.Policy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestIncrementConcurrent(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	c := counter.New(store.New(conn, nil), fastRetry, nil)

	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)

	const n = 100
	var wg sync.WaitGroup
	seen := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			count, err := c.Increment(context.Background(), opt, "")
			if err != nil {
				t.Errorf("Increment() error = %v", err)
			}
			seen[i] = count
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(n), testutil.VoteCount(t, conn, opt))

	// every returned value is distinct: no two callers observed the same count
	unique := make(map[int64]bool)
	for _, v := range seen {
		unique[v] = true
	}
	require.Len(t, unique, n)
}

func TestIncrementNotFound(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	c := counter.New(store.New(conn, nil), fastRetry, nil)

	_, err := c.Increment(context.Background(), "missing", "")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIncrementSurvivesCallerCancel(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	c := counter.New(store.New(conn, nil), fastRetry, nil)

	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := c.Increment(ctx, opt, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

type flakyStore struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyStore) IncrementOption(ctx context.Context, optionID, voteID string) (int64, error) {
	n := f.calls.Add(1)
	if n <= f.failures.Load() {
		return 0, errors.New("database is locked")
	}
	return int64(n), nil
}

func TestIncrementRetries(t *testing.T) {
	fs := &flakyStore{}
	fs.failures.Store(2)
	c := counter.New(fs, fastRetry, nil)

	count, err := c.Increment(context.Background(), "opt", "")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	fs = &flakyStore{}
	fs.failures.Store(10)
	c = counter.New(fs, fastRetry, nil)

	_, err = c.Increment(context.Background(), "opt", "")
	require.Error(t, err)
	require.Equal(t, int32(3), fs.calls.Load())
}

func TestIncrementCountsVoteOnce(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	s := store.New(conn, nil)
	c := counter.New(s, fastRetry, nil)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)
	vote := testutil.AddTestVote(t, conn, poll.ID, opt, "v1")

	count, err := c.Increment(ctx, opt, vote)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = c.Increment(ctx, opt, vote)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, int64(1), testutil.VoteCount(t, conn, opt))
}
