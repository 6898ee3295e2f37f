// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package presence owns room membership: which live sessions are viewing which
poll.

A room exists only while it has members. Presence is len(members); there is
no liveness probing here, so the gateway must call OnDisconnect for every
session that goes away, whether it left cleanly or timed out.

Rooms and sessions are spread over 32 hash shards each. Operations on
different polls rarely share a lock, and all changes to one room are
serialized by that room's shard.

Listeners registered with OnChange observe every count change in the order
it happened for that room. The hub uses this to push presence updates.
*/
package presence
