// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/livepoll/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateVote = errors.New("vote already recorded for this voter")
)

// Store is the SQL-backed ledger, counter, and poll reader.
// It works against both the postgres and sqlite schemas created by package db.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPoll finds a poll by id or slug.
func (s *Store) GetPoll(ctx context.Context, key string) (models.Poll, error) {
	var poll models.Poll
	var scheduledFor, expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, question, created_at, scheduled_for, expires_at
		FROM polls
		WHERE id = $1 OR slug = $1
		LIMIT 1
	`, key).Scan(&poll.ID, &poll.Slug, &poll.Question, &poll.CreatedAt, &scheduledFor, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	poll.ScheduledFor = nullTime(scheduledFor)
	poll.ExpiresAt = nullTime(expiresAt)
	return poll, nil
}

// GetOption returns a single option with its current vote count.
func (s *Store) GetOption(ctx context.Context, optionID string) (models.Option, error) {
	var opt models.Option
	err := s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, option_text, vote_count, position
		FROM options
		WHERE id = $1
	`, optionID).Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.VoteCount, &opt.Position)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Option{}, ErrNotFound
	}
	if err != nil {
		return models.Option{}, fmt.Errorf("failed to query option: %w", err)
	}
	return opt, nil
}

// PollState reads a poll and all of its options in a single statement so the
// counts form one consistent snapshot. Status and PresenceCount are left for
// the caller to fill in.
func (s *Store) PollState(ctx context.Context, pollID string) (models.PollState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.slug, p.question, p.scheduled_for, p.expires_at,
		       o.id, o.option_text, o.vote_count, o.position
		FROM polls p
		LEFT JOIN options o ON o.poll_id = p.id
		WHERE p.id = $1
		ORDER BY o.position, o.id
	`, pollID)
	if err != nil {
		return models.PollState{}, fmt.Errorf("failed to query poll state: %w", err)
	}
	defer rows.Close()

	state := models.PollState{Options: []models.OptionState{}}
	found := false
	for rows.Next() {
		var scheduledFor, expiresAt sql.NullTime
		var optID, optText sql.NullString
		var voteCount sql.NullInt64
		var position sql.NullInt64
		if err := rows.Scan(
			&state.ID, &state.Slug, &state.Question, &scheduledFor, &expiresAt,
			&optID, &optText, &voteCount, &position,
		); err != nil {
			return models.PollState{}, fmt.Errorf("failed to scan poll state: %w", err)
		}
		found = true
		state.ScheduledFor = nullTime(scheduledFor)
		state.ExpiresAt = nullTime(expiresAt)

		// LEFT JOIN yields one row of NULLs for a poll without options
		if !optID.Valid {
			continue
		}
		state.Options = append(state.Options, models.OptionState{
			ID:        optID.String,
			Text:      optText.String,
			VoteCount: voteCount.Int64,
			Position:  int(position.Int64),
		})
		state.TotalVotes += voteCount.Int64
	}
	if err := rows.Err(); err != nil {
		return models.PollState{}, fmt.Errorf("failed to read poll state: %w", err)
	}
	if !found {
		return models.PollState{}, ErrNotFound
	}
	return state, nil
}

// FindVote returns the ledger entry for (pollID, voterIdentity).
func (s *Store) FindVote(ctx context.Context, pollID, voterIdentity string) (models.VoteRecord, error) {
	var vote models.VoteRecord
	var fingerprint sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, option_id, voter_identity, ip_fingerprint_hash, created_at
		FROM votes
		WHERE poll_id = $1 AND voter_identity = $2
	`, pollID, voterIdentity).Scan(
		&vote.ID, &vote.PollID, &vote.OptionID, &vote.VoterIdentity, &fingerprint, &vote.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return models.VoteRecord{}, ErrNotFound
	}
	if err != nil {
		return models.VoteRecord{}, fmt.Errorf("failed to query vote: %w", err)
	}
	vote.IPFingerprintHash = fingerprint.String
	return vote, nil
}

// InsertVote appends a ledger entry. The UNIQUE (poll_id, voter_identity)
// constraint turns a concurrent duplicate into ErrDuplicateVote.
func (s *Store) InsertVote(ctx context.Context, vote models.VoteRecord) error {
	var fingerprint *string
	if vote.IPFingerprintHash != "" {
		fingerprint = &vote.IPFingerprintHash
	}
	createdAt := vote.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (id, poll_id, option_id, voter_identity, ip_fingerprint_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, vote.ID, vote.PollID, vote.OptionID, vote.VoterIdentity, fingerprint, createdAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVote
		}
		s.logger.Error("failed to insert vote", "error", err, "poll_id", vote.PollID, "vote_id", vote.ID)
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// IncrementOption atomically adds one to an option's vote_count and returns
// the new value. The read and the write happen in a single statement.
//
// A non-empty voteID ties the increment to that ledger record: the record is
// marked counted in the same transaction, and a record that is already
// counted (by an earlier attempt or by Recount) leaves vote_count unchanged.
func (s *Store) IncrementOption(ctx context.Context, optionID, voteID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin increment: %w", err)
	}
	defer tx.Rollback()

	// option row first, then vote row: the same lock order as Recount
	var count int64
	err = tx.QueryRowContext(ctx, `
		UPDATE options
		SET vote_count = vote_count + 1
		WHERE id = $1
		RETURNING vote_count
	`, optionID).Scan(&count)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment option: %w", err)
	}

	if voteID != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE votes
			SET counted = TRUE
			WHERE id = $1 AND option_id = $2 AND counted = FALSE
		`, voteID, optionID)
		if err != nil {
			return 0, fmt.Errorf("failed to mark vote counted: %w", err)
		}
		marked, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read mark result: %w", err)
		}
		if marked == 0 {
			s.logger.Debug("vote already counted", "option_id", optionID, "vote_id", voteID)
			return count - 1, nil
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit increment: %w", err)
	}
	return count, nil
}

// Recount rewrites every vote_count of a poll that disagrees with the ledger
// and returns the number of options corrected.
//
// Uncounted records are marked counted and included, so an increment still
// in flight on another process becomes a no-op when it lands. The option rows
// are locked before the vote rows, matching IncrementOption.
func (s *Store) Recount(ctx context.Context, pollID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin recount: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE options SET vote_count = vote_count WHERE poll_id = $1
	`, pollID); err != nil {
		return 0, fmt.Errorf("failed to lock options: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE votes SET counted = TRUE WHERE poll_id = $1 AND counted = FALSE
	`, pollID); err != nil {
		return 0, fmt.Errorf("failed to mark votes counted: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE options
		SET vote_count = (SELECT COUNT(*) FROM votes v WHERE v.option_id = options.id AND v.counted = TRUE)
		WHERE poll_id = $1
		  AND vote_count <> (SELECT COUNT(*) FROM votes v WHERE v.option_id = options.id AND v.counted = TRUE)
	`, pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to recount poll: %w", err)
	}

	corrected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read recount result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit recount: %w", err)
	}
	return corrected, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		// connections without extended result codes only report the primary code
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
