// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	if err := cliparse.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Sources

Every setting is resolved from the first source that provides it:

 1. command-line flag
 2. environment variable (a .env file is loaded first by LoadDotEnv)
 3. YAML config file given by -c or CONFIG_FILE
 4. built-in default

# Settings

	Flag                 Env                 Default
	-p                   PORT                3318
	-d                   DATABASE_URL        (required)
	-t                   DATABASE_TYPE       sqlite
	-admin-salt          ADMIN_KEY_SALT      (required)
	-fingerprint-salt    FINGERPRINT_SALT    admin salt
	-relay               RELAY               local
	-redis-url           REDIS_URL           (required for redis relay)
	-ping-interval       PING_INTERVAL       5s
	-disconnect-timeout  DISCONNECT_TIMEOUT  10s
	-reconcile-interval  RECONCILE_INTERVAL  1m (0 disables)
	-log-level           LOG_LEVEL           info
	-origins             ALLOWED_ORIGINS     *

The YAML file uses the snake_case env names in lower case:

	port: 3318
	database_type: postgres
	database_url: postgres://livepoll@localhost/livepoll
	relay: postgres
	ping_interval: 5s
	allowed_origins:
	  - https://polls.example

# Validation

ParseFlags returns an error when a required value is missing, when the
database type or relay is unknown, when the redis relay has no REDIS_URL,
when the postgres relay is used without a postgres database, or when the
disconnect timeout does not exceed the ping interval.
*/
package cliparse
