// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides key derivation and identity checks for the vote engine.

# Admin Keys

Operator endpoints (reconciliation) are guarded by an HMAC-SHA256 key derived
from the poll id and the server salt:

	adminKey := auth.GenerateAdminKey(pollID, salt)
	err := auth.ValidateAdminKey(pollID, adminKey, salt)

Nothing is stored; the same poll id and salt always produce the same key.

# Voter Identities

A voter identity is an opaque token chosen by the client, usually a locally
generated UUID kept in browser storage. The server only checks its shape:

	err := auth.ValidateVoterIdentity(identity) // 1-128 printable runes

# IP Fingerprints

The ledger keeps a salted hash of the client address:

	hash := auth.FingerprintIP(ip, salt)

The fingerprint is informational. Many voters can share one NAT address, so
admission never looks at it.
*/
package auth
