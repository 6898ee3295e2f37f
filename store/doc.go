// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the SQL access layer for polls, options and the vote ledger.

Every query uses $N placeholders, which both lib/pq and modernc sqlite accept,
so one Store serves either database created by package db.

# Ledger

InsertVote relies on UNIQUE (poll_id, voter_identity). A violation is
reported as ErrDuplicateVote for both drivers (SQLSTATE 23505 on postgres,
SQLITE_CONSTRAINT_UNIQUE on sqlite). FindVote is the non-authoritative
pre-check.

# Counter

IncrementOption is a single UPDATE ... RETURNING statement, so concurrent
increments on one option never lose an update. Given a vote id it also flips
that record's counted flag in the same transaction, which makes the increment
idempotent per record.

Recount rewrites vote_count from the ledger for options that drifted. It
marks every uncounted record as counted before counting, so vote_count always
equals the number of counted records and a late increment from another
server process cannot add a vote the recount already included.

# Snapshots

PollState reads the poll and its options in one statement so the pushed
counts are a consistent snapshot rather than a mix of separate reads.
*/
package store
