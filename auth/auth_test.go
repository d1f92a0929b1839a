// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"testing"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"12 bytes", 12, 24},
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
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateShareCredentials(t *testing.T) {
	shareID, deleteKey, err := GenerateShareCredentials()
	if err != nil {
		t.Fatalf("GenerateShareCredentials() error = %v", err)
	}
	if err := ValidateShareID(shareID); err != nil {
		t.Errorf("share id %q does not match the id shape", shareID)
	}
	if err := ValidateShareID(deleteKey); err != nil {
		t.Errorf("delete key %q does not match the id shape", deleteKey)
	}
	if shareID == deleteKey {
		t.Error("share id and delete key should be independent")
	}
}

func TestValidateShareID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"valid", "0123456789abcdef01234567", true},
		{"empty", "", false},
		{"too short", "0123456789abcdef0123456", false},
		{"too long", "0123456789abcdef012345678", false},
		{"upper case", "0123456789ABCDEF01234567", false},
		{"non hex", "0123456789abcdef0123456g", false},
		{"sql injection", "' OR 1=1 --aaaaaaaaaaaaaa", false},
		{"trailing newline", "0123456789abcdef01234567\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShareID(tt.id)
			if tt.valid && err != nil {
				t.Errorf("ValidateShareID(%q) = %v, want nil", tt.id, err)
			}
			if !tt.valid && err != ErrInvalidShareID {
				t.Errorf("ValidateShareID(%q) = %v, want ErrInvalidShareID", tt.id, err)
			}
		})
	}
}

func TestHashIP(t *testing.T) {
	hash := HashIP("192.168.1.1", "salt")
	if len(hash) != 32 {
		t.Errorf("HashIP() length = %d, want 32", len(hash))
	}
	if hash != HashIP("192.168.1.1", "salt") {
		t.Error("HashIP() is not deterministic")
	}
	if hash == HashIP("192.168.1.2", "salt") {
		t.Error("HashIP() produced same hash for different IPs")
	}
	if hash == HashIP("192.168.1.1", "other-salt") {
		t.Error("HashIP() produced same hash for different salts")
	}
	if HashIP("192.168.1.1", "") == "" {
		t.Error("HashIP() without salt returned empty string")
	}
}
