// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Open connects to the database and verifies the connection.
// SQLite is limited to a single connection so writers never contend for the file lock.
func Open(ctx context.Context, dbType, url string) (*sql.DB, error) {
	if dbType != TypePostgres && dbType != TypeSQLite {
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(dbType, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbType, err)
	}

	if dbType == TypeSQLite {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dbType, err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the engine.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	schema := postgresSchema
	if dbType == TypeSQLite {
		schema = sqliteSchema
	}

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS polls (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    question TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    scheduled_for TIMESTAMPTZ,
    expires_at TIMESTAMPTZ
);

-- Options
CREATE TABLE IF NOT EXISTS options (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_text TEXT NOT NULL,
    vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_poll_id ON options(poll_id, position);

-- Votes (ledger)
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    voter_identity TEXT NOT NULL,
    ip_fingerprint_hash TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    counted BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (poll_id, voter_identity)
);

CREATE INDEX IF NOT EXISTS idx_votes_option_id ON votes(option_id);
`

const sqliteSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS polls (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    question TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    scheduled_for DATETIME,
    expires_at DATETIME
);

-- Options
CREATE TABLE IF NOT EXISTS options (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_text TEXT NOT NULL,
    vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_poll_id ON options(poll_id, position);

-- Votes (ledger)
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    voter_identity TEXT NOT NULL,
    ip_fingerprint_hash TEXT,
    created_at DATETIME NOT NULL,
    counted BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (poll_id, voter_identity)
);

CREATE INDEX IF NOT EXISTS idx_votes_option_id ON votes(option_id);
`
