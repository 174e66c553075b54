// Package hashing provides deterministic one-way hashes of PII identifiers
// for privacy-preserving exports to ad platforms that accept hashed
// customer lists.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashEmail normalizes an email (lowercase, trimmed) and returns its
// SHA-256 hex digest.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// HashPhone strips all non-digit characters from a phone number and returns
// the SHA-256 hex digest of the remainder.
func HashPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
