// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the livepoll API.

# Handler Types

Each handler is a struct over the voting service and config:

  - VoteHandler: casting votes and checking a voter's status
  - PollHandler: the poll state pull and admin reconciliation

	voteHandler := handlers.NewVoteHandler(engine.Voting, cfg, logger)

Path parameters come from chi; {pollId} accepts a poll id or its slug.

# Voting

	POST /polls/{pollId}/votes          → CastVote
	GET  /polls/{pollId}/votes?voterIdentity=... → VoteStatus

CastVote maps admission outcomes to responses:

	Admitted        200 {"ok": true}
	AlreadyVoted    403 {"error": "already_voted", "optionId": "<recorded>"}
	NotActive       403 {"error": "not_active", "message": "voting ended 2 hours ago"}
	PollNotFound    404 {"error": "poll_not_found"}
	OptionNotFound  404 {"error": "option_not_found"}
	invalid input   400 {"error": "invalid_request"}

The client IP is reduced to a salted fingerprint before it reaches the
ledger. It is never used to reject a vote.

# Polls

	GET  /polls/{pollId}           → GetPoll (full state, the reconnect pull)
	POST /polls/{pollId}/reconcile → Reconcile (requires X-Admin-Key)

The admin key is the HMAC of the poll id under ADMIN_KEY_SALT.
*/
package handlers
