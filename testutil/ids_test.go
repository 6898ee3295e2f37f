// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import "testing"

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateSlug(t *testing.T) {
	slug := GenerateSlug("poll-abc", "salt")
	if slug == "" || len(slug) > 11 {
		t.Fatalf("GenerateSlug() = %q, want 1-11 chars", slug)
	}
	if slug != GenerateSlug("poll-abc", "salt") {
		t.Error("GenerateSlug() is not deterministic")
	}
	if slug == GenerateSlug("poll-xyz", "salt") {
		t.Error("GenerateSlug() produced same slug for different poll IDs")
	}
	for _, c := range slug {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			t.Errorf("GenerateSlug() contains non-alphanumeric char: %c", c)
		}
	}
}

func TestBase62Encode(t *testing.T) {
	if got := base62Encode([]byte{0, 0, 0, 0}); got != "0" {
		t.Errorf("base62Encode(zero) = %q, want \"0\"", got)
	}
	if got := base62Encode([]byte{0, 0, 0, 61}); got != "Z" {
		t.Errorf("base62Encode(61) = %q, want \"Z\"", got)
	}
	if got := base62Encode([]byte{0, 0, 0, 62}); got != "10" {
		t.Errorf("base62Encode(62) = %q, want \"10\"", got)
	}
}
