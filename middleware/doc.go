// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Metrics

Both are chi-style middleware:

	r.Use(chimw.RequestID, middleware.Metrics, middleware.WithLogging(logger))

WithLogging writes one line per request (request_id, method, path, status,
remote, duration_ms); 5xx responses log at error level. Metrics labels by
route pattern ("/polls/{pollId}/votes"), never by raw path.

The status-capturing writer forwards Hijack and Unwrap so WebSocket upgrades
and SSE flushing work behind both.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusForbidden, models.ErrCodeAlreadyVoted, "")

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Checks X-Forwarded-For, then X-Real-IP, then RemoteAddr. The result only
feeds the informational IP fingerprint on vote records.
*/
package middleware
