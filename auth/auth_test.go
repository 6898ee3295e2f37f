// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAdminKey(t *testing.T) {
	pollID := "poll-123"
	salt := "admin-salt"
	validKey := GenerateAdminKey(pollID, salt)

	if strings.Contains(validKey, "=") {
		t.Error("GenerateAdminKey() contains padding characters")
	}

	tests := []struct {
		name     string
		pollID   string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", pollID, validKey, salt, false},
		{"wrong key", pollID, "wrong-key", salt, true},
		{"other poll", "poll-456", validKey, salt, true},
		{"other salt", pollID, validKey, "other-salt", true},
		{"empty key", pollID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.pollID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidAdminKey) {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestValidateVoterIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		wantErr  bool
	}{
		{"uuid token", "3f1c9a52-7d7e-4c55-9f43-8a0c2b1d6e7f", false},
		{"short", "v1", false},
		{"unicode", "vötér-✓", false},
		{"max length", strings.Repeat("a", MaxVoterIdentityLen), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxVoterIdentityLen+1), true},
		{"control char", "abc\x00def", true},
		{"newline", "abc\ndef", true},
		{"invalid utf8", "abc\xffdef", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVoterIdentity(tt.identity)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVoterIdentity(%q) error = %v, wantErr %v", tt.identity, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidVoterIdentity) {
				t.Errorf("ValidateVoterIdentity(%q) error = %v, want %v", tt.identity, err, ErrInvalidVoterIdentity)
			}
		})
	}
}

func TestFingerprintIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6", "2001:db8::8a2e:370:7334"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := FingerprintIP(tt.ip, "salt")
			if len(hash) != 16 {
				t.Errorf("FingerprintIP() length = %d, want 16", len(hash))
			}
			if hash != FingerprintIP(tt.ip, "salt") {
				t.Error("FingerprintIP() is not deterministic")
			}
		})
	}

	if FingerprintIP("10.0.0.1", "salt1") == FingerprintIP("10.0.0.1", "salt2") {
		t.Error("FingerprintIP() produced same hash for different salts")
	}
	if FingerprintIP("", "salt") != "" {
		t.Error("FingerprintIP() should be empty for an unknown address")
	}
}

func BenchmarkValidateVoterIdentity(b *testing.B) {
	identity := "3f1c9a52-7d7e-4c55-9f43-8a0c2b1d6e7f"
	for i := 0; i < b.N; i++ {
		ValidateVoterIdentity(identity)
	}
}
