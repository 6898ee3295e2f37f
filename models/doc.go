// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, wire, request, and response types.

# Domain Types

  - Poll: question plus optional scheduled_for / expires_at bounds
  - Option: display text, position, and the derived vote_count
  - VoteRecord: one ledger row per (poll, voter identity)
  - ActivityEvent: transient "someone voted" notice

# Push Protocol

Every server push is an Envelope:

	{"type": "poll-state", "pollId": "...", "data": PollState}
	{"type": "activity",   "pollId": "...", "data": ActivityEvent}
	{"type": "presence",   "pollId": "...", "data": {"count": 3}}
	{"type": "error",      "pollId": "...", "data": ErrorResponse}

Clients send ClientFrame values to control room membership:

	{"type": "join",  "pollId": "..."}
	{"type": "leave", "pollId": "..."}

# HTTP Types

  - CastVoteRequest: optionId, voterIdentity
  - CastVoteResponse: ok
  - VoteStatusResponse: hasVoted, optionId
  - ReconcileResponse: pollId, corrected
  - ErrorResponse: error code, message, optionId (already_voted only)

Wire field names are camelCase to match the browser client.
*/
package models
