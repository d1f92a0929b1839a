// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/blake2b"

	"github.com/grazios/oshijiku/models"
)

var ErrInvalidShareID = errors.New("invalid share id")

var shareIDRE = regexp.MustCompile(`^[a-f0-9]{24}$`)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateShareCredentials returns a fresh share id and an independent
// delete key. The delete key is a bearer capability: whoever holds it may
// delete the share.
func GenerateShareCredentials() (shareID, deleteKey string, err error) {
	shareID, err = GenerateID(models.ShareIDByteLen)
	if err != nil {
		return "", "", err
	}
	deleteKey, err = GenerateID(models.DeleteKeyByteLen)
	if err != nil {
		return "", "", err
	}
	return shareID, deleteKey, nil
}

// ValidateShareID checks the 24 lowercase hex shape before any lookup
func ValidateShareID(id string) error {
	if !shareIDRE.MatchString(id) {
		return ErrInvalidShareID
	}
	return nil
}

// HashIP creates a one-way hash of an IP address for use in storage keys.
// With a salt the hash is keyed, so addresses cannot be recovered by
// enumerating the IPv4 space.
func HashIP(ip, salt string) string {
	var key []byte
	if salt != "" {
		sum := blake2b.Sum256([]byte(salt))
		key = sum[:]
	}
	h, err := blake2b.New(16, key)
	if err != nil {
		// Only reachable with a key longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}
