// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens database connections and creates the schema.

# Drivers

Two database types are supported:

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (pure Go, the default for development and tests)

	conn, err := db.Open(ctx, db.TypeSQLite, "file:livepoll.db")

# Schema Creation

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: question, slug, optional scheduled_for / expires_at
  - options: option_text, position, vote_count (the counter)
  - votes: the ledger, UNIQUE (poll_id, voter_identity); counted marks
    records already reflected in vote_count

The unique constraint on votes is what makes admission race-safe; the
engine never relies on its own existence check alone.

# Relationships

	polls 1──* options
	polls 1──* votes
	options 1──* votes
*/
package db
