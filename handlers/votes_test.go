// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func TestCastVote(t *testing.T) {
	voteHandler, _, _, conn := setupHandlers(t)

	open := testutil.CreateTestPoll(t, conn)
	optA := testutil.AddTestOption(t, conn, open.ID, "A", 0)
	optB := testutil.AddTestOption(t, conn, open.ID, "B", 1)

	ended := testutil.CreateTestPoll(t, conn, testutil.ExpiresAt(time.Now().Add(-2*time.Hour)))
	endedOpt := testutil.AddTestOption(t, conn, ended.ID, "A", 0)

	scheduled := testutil.CreateTestPoll(t, conn, testutil.ScheduledFor(time.Now().Add(3*time.Hour)))
	scheduledOpt := testutil.AddTestOption(t, conn, scheduled.ID, "A", 0)

	// v1 already voted for A
	first := withPollID(testutil.MakeRequest("POST", "/polls/"+open.ID+"/votes",
		models.CastVoteRequest{OptionID: optA, VoterIdentity: "v1"}, nil), open.ID)
	w := httptest.NewRecorder()
	voteHandler.CastVote(w, first)
	testutil.AssertStatus(t, w, http.StatusOK)

	testCases := []struct {
		name           string
		pollKey        string
		body           interface{}
		expectedStatus int
		expectedError  string
		expectedOption string
		messagePrefix  string
	}{
		{
			name:           "admitted by slug",
			pollKey:        open.Slug,
			body:           models.CastVoteRequest{OptionID: optB, VoterIdentity: "v2"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "already voted reports the recorded option",
			pollKey:        open.ID,
			body:           models.CastVoteRequest{OptionID: optB, VoterIdentity: "v1"},
			expectedStatus: http.StatusForbidden,
			expectedError:  models.ErrCodeAlreadyVoted,
			expectedOption: optA,
		},
		{
			name:           "ended poll",
			pollKey:        ended.ID,
			body:           models.CastVoteRequest{OptionID: endedOpt, VoterIdentity: "v1"},
			expectedStatus: http.StatusForbidden,
			expectedError:  models.ErrCodeNotActive,
			messagePrefix:  "voting ended",
		},
		{
			name:           "scheduled poll",
			pollKey:        scheduled.ID,
			body:           models.CastVoteRequest{OptionID: scheduledOpt, VoterIdentity: "v1"},
			expectedStatus: http.StatusForbidden,
			expectedError:  models.ErrCodeNotActive,
			messagePrefix:  "voting opens",
		},
		{
			name:           "unknown poll",
			pollKey:        "nope",
			body:           models.CastVoteRequest{OptionID: optA, VoterIdentity: "v1"},
			expectedStatus: http.StatusNotFound,
			expectedError:  models.ErrCodePollNotFound,
		},
		{
			name:           "option from another poll",
			pollKey:        open.ID,
			body:           models.CastVoteRequest{OptionID: endedOpt, VoterIdentity: "v3"},
			expectedStatus: http.StatusNotFound,
			expectedError:  models.ErrCodeOptionNotFound,
		},
		{
			name:           "missing option",
			pollKey:        open.ID,
			body:           models.CastVoteRequest{VoterIdentity: "v3"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  models.ErrCodeInvalidRequest,
		},
		{
			name:           "empty voter identity",
			pollKey:        open.ID,
			body:           models.CastVoteRequest{OptionID: optA},
			expectedStatus: http.StatusBadRequest,
			expectedError:  models.ErrCodeInvalidRequest,
		},
		{
			name:           "voter identity too long",
			pollKey:        open.ID,
			body:           models.CastVoteRequest{OptionID: optA, VoterIdentity: strings.Repeat("x", 129)},
			expectedStatus: http.StatusBadRequest,
			expectedError:  models.ErrCodeInvalidRequest,
		},
		{
			name:           "malformed body",
			pollKey:        open.ID,
			body:           map[string]int{"optionId": 5},
			expectedStatus: http.StatusBadRequest,
			expectedError:  models.ErrCodeInvalidRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := withPollID(testutil.MakeRequest("POST", "/polls/"+tc.pollKey+"/votes", tc.body, nil), tc.pollKey)
			w := httptest.NewRecorder()

			voteHandler.CastVote(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedError == "" {
				var resp models.CastVoteResponse
				testutil.AssertJSON(t, w, &resp)
				if !resp.OK {
					t.Error("Expected ok:true")
				}
				return
			}

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Error != tc.expectedError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectedError, resp.Error)
			}
			if resp.OptionID != tc.expectedOption {
				t.Errorf("Expected optionId '%s', got '%s'", tc.expectedOption, resp.OptionID)
			}
			if !strings.HasPrefix(resp.Message, tc.messagePrefix) {
				t.Errorf("Expected message starting with '%s', got '%s'", tc.messagePrefix, resp.Message)
			}
		})
	}

	if got := testutil.VoteCount(t, conn, optA); got != 1 {
		t.Errorf("Expected option A count 1, got %d", got)
	}
	if got := testutil.VoteCount(t, conn, optB); got != 1 {
		t.Errorf("Expected option B count 1, got %d", got)
	}
}

func TestCastVote_StoresFingerprint(t *testing.T) {
	voteHandler, _, _, conn := setupHandlers(t)
	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)

	req := withPollID(testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes",
		models.CastVoteRequest{OptionID: opt, VoterIdentity: "v1"},
		map[string]string{"X-Forwarded-For": "203.0.113.7"}), poll.ID)
	w := httptest.NewRecorder()
	voteHandler.CastVote(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var stored string
	err := conn.QueryRow(`SELECT ip_fingerprint_hash FROM votes WHERE poll_id = $1`, poll.ID).Scan(&stored)
	if err != nil {
		t.Fatalf("Failed to read vote: %v", err)
	}

	expected := auth.FingerprintIP("203.0.113.7", testutil.GetTestConfig().FingerprintSalt)
	if stored != expected {
		t.Errorf("Expected fingerprint %s, got %s", expected, stored)
	}
	if strings.Contains(stored, "203.0.113.7") {
		t.Error("Raw IP must not be stored")
	}
}

// TestConcurrentVotes fires many distinct voters at one poll at once; every
// vote must be admitted and counted exactly once.
func TestConcurrentVotes(t *testing.T) {
	voteHandler, _, _, conn := setupHandlers(t)
	poll := testutil.CreateTestPoll(t, conn)
	opts := []string{
		testutil.AddTestOption(t, conn, poll.ID, "A", 0),
		testutil.AddTestOption(t, conn, poll.ID, "B", 1),
		testutil.AddTestOption(t, conn, poll.ID, "C", 2),
	}

	numVoters := 30
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			req := withPollID(testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes", models.CastVoteRequest{
				OptionID:      opts[voterIdx%3],
				VoterIdentity: fmt.Sprintf("voter-%d", voterIdx),
			}, nil), poll.ID)
			w := httptest.NewRecorder()

			voteHandler.CastVote(w, req)
			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d accepted votes, got %d", numVoters, successCount.Load())
	}
	for _, opt := range opts {
		if got := testutil.VoteCount(t, conn, opt); got != int64(numVoters/3) {
			t.Errorf("Expected %d votes for %s, got %d", numVoters/3, opt, got)
		}
	}
	if got := testutil.LedgerCount(t, conn, poll.ID); got != numVoters {
		t.Errorf("Expected %d ledger rows, got %d", numVoters, got)
	}
}

// TestConcurrentDuplicateVotes sends the same voter many times at once; only
// one may be admitted.
func TestConcurrentDuplicateVotes(t *testing.T) {
	voteHandler, _, _, conn := setupHandlers(t)
	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)

	attempts := 20
	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := withPollID(testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes",
				models.CastVoteRequest{OptionID: opt, VoterIdentity: "same-device"}, nil), poll.ID)
			w := httptest.NewRecorder()

			voteHandler.CastVote(w, req)
			switch w.Code {
			case http.StatusOK:
				admitted.Add(1)
			case http.StatusForbidden:
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 1 {
		t.Errorf("Expected exactly 1 admitted vote, got %d", admitted.Load())
	}
	if int(rejected.Load()) != attempts-1 {
		t.Errorf("Expected %d already_voted responses, got %d", attempts-1, rejected.Load())
	}
	if got := testutil.VoteCount(t, conn, opt); got != 1 {
		t.Errorf("Expected count 1, got %d", got)
	}
}

func TestVoteStatus(t *testing.T) {
	voteHandler, _, _, conn := setupHandlers(t)
	poll := testutil.CreateTestPoll(t, conn)
	opt := testutil.AddTestOption(t, conn, poll.ID, "A", 0)

	req := withPollID(testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes",
		models.CastVoteRequest{OptionID: opt, VoterIdentity: "v1"}, nil), poll.ID)
	voteHandler.CastVote(httptest.NewRecorder(), req)

	testCases := []struct {
		name           string
		pollKey        string
		query          string
		expectedStatus int
		expected       models.VoteStatusResponse
	}{
		{"voted", poll.ID, "?voterIdentity=v1", http.StatusOK, models.VoteStatusResponse{HasVoted: true, OptionID: opt}},
		{"voted by slug", poll.Slug, "?voterIdentity=v1", http.StatusOK, models.VoteStatusResponse{HasVoted: true, OptionID: opt}},
		{"not voted", poll.ID, "?voterIdentity=v2", http.StatusOK, models.VoteStatusResponse{}},
		{"missing identity", poll.ID, "", http.StatusBadRequest, models.VoteStatusResponse{}},
		{"unknown poll", "nope", "?voterIdentity=v1", http.StatusNotFound, models.VoteStatusResponse{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := withPollID(testutil.MakeRequest("GET", "/polls/"+tc.pollKey+"/votes"+tc.query, nil, nil), tc.pollKey)
			w := httptest.NewRecorder()

			voteHandler.VoteStatus(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
			if tc.expectedStatus != http.StatusOK {
				return
			}
			var resp models.VoteStatusResponse
			testutil.AssertJSON(t, w, &resp)
			if resp != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, resp)
			}
		})
	}
}
