// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package admission decides whether a vote attempt may be recorded.

	gate := admission.NewGate(store, retry.Default, logger)
	res, err := gate.TryAdmit(ctx, admission.Request{
		PollID:        "poll-or-slug",
		OptionID:      optionID,
		VoterIdentity: voterToken,
	})

TryAdmit checks, in order: the poll exists, the option belongs to it, the
poll is inside its voting window (package lifecycle), and the voter has no
ledger record yet. Only then is a VoteRecord inserted.

The existence check is optimistic. Two requests for one voter can both pass
it; the UNIQUE (poll_id, voter_identity) constraint then rejects one insert,
and that rejection is reported as AlreadyVoted rather than an error. Replays
from a client's offline queue land on the same path and are harmless.

Transient store errors are retried with retry.Policy. If an insert committed
but its acknowledgement was lost, the retry sees a duplicate carrying the
vote id generated for this attempt and reports Admitted. The insert and that
follow-up lookup run on a context detached from the caller and bounded by
WriteTimeout, so a client that disconnects mid-write does not strand a
committed record.

Rejections (AlreadyVoted, NotActive, PollNotFound, OptionNotFound) are
Outcomes, not errors. Errors are reserved for invalid input
(ErrInvalidRequest) and store failures that outlived their retries. A failure
once the insert has been attempted wraps ErrUnconfirmed: the record may or
may not exist, and callers should reconcile the poll.
*/
package admission
