// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/livepoll/engine"
	"github.com/danielhkuo/livepoll/relay"
	"github.com/danielhkuo/livepoll/retry"
	"github.com/danielhkuo/livepoll/testutil"
)

// setupHandlers wires both handlers to a fresh sqlite-backed engine
func setupHandlers(t *testing.T) (*VoteHandler, *PollHandler, *engine.Engine, *sql.DB) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	e := engine.New(conn, relay.NewLocal(), engine.Options{
		Retry: retry.Policy{Attempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	t.Cleanup(e.Close)

	cfg := testutil.GetTestConfig()
	return NewVoteHandler(e.Voting, cfg, nil), NewPollHandler(e.Voting, cfg, nil), e, conn
}

// withPollID sets the {pollId} route parameter the way chi does
func withPollID(r *http.Request, pollID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("pollId", pollID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
