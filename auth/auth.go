// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxVoterIdentityLen bounds voter identities in runes.
const MaxVoterIdentityLen = 128

var (
	ErrInvalidAdminKey      = errors.New("invalid admin key")
	ErrInvalidVoterIdentity = errors.New("invalid voter identity")
)

// GenerateAdminKey derives the operator key for a poll from the server salt.
// Deterministic, so nothing needs to be stored to validate it.
func GenerateAdminKey(pollID, salt string) string {
	sum := mac(salt, pollID)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks the provided admin key against the poll id
func ValidateAdminKey(pollID, adminKey, salt string) error {
	expected := GenerateAdminKey(pollID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// ValidateVoterIdentity accepts opaque client tokens of 1 to
// MaxVoterIdentityLen printable characters.
func ValidateVoterIdentity(identity string) error {
	if identity == "" || !utf8.ValidString(identity) {
		return ErrInvalidVoterIdentity
	}
	if utf8.RuneCountInString(identity) > MaxVoterIdentityLen {
		return ErrInvalidVoterIdentity
	}
	for _, r := range identity {
		if !unicode.IsPrint(r) {
			return ErrInvalidVoterIdentity
		}
	}
	return nil
}

// FingerprintIP hashes a client address for the ledger's informational
// fingerprint column. It is never used to reject a vote.
func FingerprintIP(ip, salt string) string {
	if ip == "" {
		return ""
	}
	return hex.EncodeToString(mac(salt, ip)[:8])
}

func mac(key, msg string) []byte {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(msg))
	return h.Sum(nil)
}
