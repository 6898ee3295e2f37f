// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll server.

livepoll admits one vote per voter per poll, keeps per-option counters, and
pushes every change to the people watching the poll in real time, along
with a live count of who is watching.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:livepoll.db ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -relay postgres

A .env file in the working directory is loaded first; variables already set
in the environment win.

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): secret for admin key HMAC

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - RELAY (-relay): local, redis or postgres (default: local)
  - REDIS_URL (-redis-url): required for the redis relay
  - PING_INTERVAL, DISCONNECT_TIMEOUT, RECONCILE_INTERVAL
  - LOG_LEVEL, ALLOWED_ORIGINS, FINGERPRINT_SALT
  - CONFIG_FILE (-c): YAML file with the same settings

# Architecture

  - engine: wires the components below around one database and one relay
  - admission, counter, lifecycle: the vote path
  - presence, hub, gateway: viewers, fan-out and WebSocket/SSE sessions
  - relay: carries "poll X has a new vote" between server processes
  - reconcile: rewrites counters from the vote ledger
  - handlers, router, middleware: the HTTP API
  - store, db: SQL access and schema
  - auth, cliparse, metrics, retry, keylock: supporting packages

On SIGINT/SIGTERM the server stops accepting requests, drains in-flight
ones, then stops the engine.

See package documentation for each component.
*/
package main
