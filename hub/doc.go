// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub fans poll updates out to the sessions viewing a poll.

	h := hub.New(store, registry, logger)
	registry.OnChange(h.NotifyPresenceChanged)
	h.Attach(session)
	h.NotifyVoteCast(pollID)

# Pushes

  - NotifyVoteCast: re-reads the poll snapshot, pushes poll-state, then an
    activity notice ("Someone just voted") with a ULID id and a colour from
    ActivityColors. Which option was chosen is not revealed.
  - NotifyPresenceChanged: pushes the room's member count.
  - SendState: pushes poll-state to one session, used right after a join.

# Ordering and Delivery

Work for a room is queued to that room's worker goroutine, created on demand
and retired after it has been idle for a while. Pushes for one room are
therefore generated and delivered in order. Rooms never wait on each other.

Delivery is at most once. Sender.Send must not block; a session whose queue
is full misses the push and catches up on the next update or on its own
refresh. A full room queue drops the job the same way. Both are counted in
livepoll_broadcasts_dropped_total.

All Notify methods return without waiting, so the vote path never blocks
on fan-out.
*/
package hub
