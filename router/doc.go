// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

	handler := router.NewRouter(engine, cfg, logger)

# Middleware

Applied to every route, in order: request id, real ip, panic recovery,
CORS (ALLOWED_ORIGINS), metrics, request logging.

# Endpoints

	GET  /health                    - 200 "OK", 503 if the database is unreachable
	GET  /metrics                   - Prometheus exposition
	GET  /ws                        - WebSocket session (join/leave frames)
	GET  /polls/{pollId}            - Full poll state
	GET  /polls/{pollId}/events     - SSE stream for one poll
	POST /polls/{pollId}/votes      - Cast a vote
	GET  /polls/{pollId}/votes      - Vote status for ?voterIdentity=
	POST /polls/{pollId}/reconcile  - Recount from the ledger (X-Admin-Key)
*/
package router
