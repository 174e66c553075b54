package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashEmail_Normalization(t *testing.T) {
	// Case and surrounding whitespace must not change the digest.
	assert.Equal(t, HashEmail("a@b.com"), HashEmail(" A@B.com "))
	assert.Equal(t, HashEmail("alice@example.com"), HashEmail("ALICE@EXAMPLE.COM"))
}

func TestHashEmail_Deterministic(t *testing.T) {
	sum := sha256.Sum256([]byte("a@b.com"))
	want := hex.EncodeToString(sum[:])
	assert.Equal(t, want, HashEmail("a@b.com"))
	assert.Equal(t, want, HashEmail("a@b.com"))
}

func TestHashEmail_DistinctInputs(t *testing.T) {
	assert.NotEqual(t, HashEmail("a@b.com"), HashEmail("b@a.com"))
}

func TestHashPhone_StripsFormatting(t *testing.T) {
	assert.Equal(t, HashPhone("5125551234"), HashPhone("(512) 555-1234"))
	assert.Equal(t, HashPhone("15125551234"), HashPhone("+1 512 555 1234"))
}

func TestHashPhone_Deterministic(t *testing.T) {
	sum := sha256.Sum256([]byte("5125551234"))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashPhone("512-555-1234"))
}
