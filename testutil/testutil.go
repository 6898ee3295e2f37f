// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

// SetupTestDB opens a fresh sqlite database in a temp dir with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "livepoll.db") +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	conn, err := db.Open(context.Background(), db.TypeSQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// PostgresURL returns TEST_DATABASE_URL or skips the test
func PostgresURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return url
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       "file:test.db",
		DatabaseType:      db.TypeSQLite,
		AdminKeySalt:      "test-admin-salt",
		FingerprintSalt:   "test-fingerprint-salt",
		Relay:             cliparse.RelayLocal,
		PingInterval:      50 * time.Millisecond,
		DisconnectTimeout: 200 * time.Millisecond,
		AllowedOrigins:    []string{"*"},
	}
}

// PollOption adjusts a test poll before it is inserted
type PollOption func(*models.Poll)

// ScheduledFor sets the poll's opening time
func ScheduledFor(at time.Time) PollOption {
	at = at.UTC()
	return func(p *models.Poll) { p.ScheduledFor = &at }
}

// ExpiresAt sets the poll's closing time
func ExpiresAt(at time.Time) PollOption {
	at = at.UTC()
	return func(p *models.Poll) { p.ExpiresAt = &at }
}

// CreateTestPoll inserts a poll with no lifecycle bounds unless options set them
func CreateTestPoll(t *testing.T, conn *sql.DB, opts ...PollOption) models.Poll {
	t.Helper()

	id, _ := GenerateID(16)
	poll := models.Poll{
		ID:        id,
		Slug:      GenerateSlug(id, "test-slug-salt"),
		Question:  "Test Poll?",
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&poll)
	}

	_, err := conn.Exec(`
		INSERT INTO polls (id, slug, question, created_at, scheduled_for, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, poll.ID, poll.Slug, poll.Question, poll.CreatedAt, poll.ScheduledFor, poll.ExpiresAt)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return poll
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, conn *sql.DB, pollID, text string, position int) string {
	t.Helper()

	optionID, _ := GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO options (id, poll_id, option_text, position)
		VALUES ($1, $2, $3, $4)
	`, optionID, pollID, text, position)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// AddTestVote inserts an uncounted ledger record and returns its ID
func AddTestVote(t *testing.T, conn *sql.DB, pollID, optionID, voter string) string {
	t.Helper()

	voteID, _ := GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO votes (id, poll_id, option_id, voter_identity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, pollID, optionID, voter, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// SetVoteCount overwrites an option's counter, simulating a lost increment
func SetVoteCount(t *testing.T, conn *sql.DB, optionID string, count int64) {
	t.Helper()
	if _, err := conn.Exec(`UPDATE options SET vote_count = $1 WHERE id = $2`, count, optionID); err != nil {
		t.Fatalf("Failed to set vote count: %v", err)
	}
}

// VoteCount returns an option's counter
func VoteCount(t *testing.T, conn *sql.DB, optionID string) int64 {
	t.Helper()
	var count int64
	if err := conn.QueryRow(`SELECT vote_count FROM options WHERE id = $1`, optionID).Scan(&count); err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	return count
}

// LedgerCount returns the number of vote records for a poll
func LedgerCount(t *testing.T, conn *sql.DB, pollID string) int {
	t.Helper()
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM votes WHERE poll_id = $1`, pollID).Scan(&count); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return count
}

// RecordingSender captures every push delivered to it
type RecordingSender struct {
	id string

	mu       sync.Mutex
	messages []models.Envelope
}

func NewRecordingSender(id string) *RecordingSender {
	return &RecordingSender{id: id}
}

func (r *RecordingSender) ID() string { return r.id }

func (r *RecordingSender) Send(env models.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, env)
	return true
}

// Messages returns a copy of everything received so far
func (r *RecordingSender) Messages() []models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Envelope(nil), r.messages...)
}

// OfType returns the received messages with the given type, in order
func (r *RecordingSender) OfType(msgType string) []models.Envelope {
	var out []models.Envelope
	for _, env := range r.Messages() {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
