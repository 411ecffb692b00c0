package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the size of a hash in bytes.
const HashSize = sha256.Size

// HashBytes computes the SHA-256 hash of data and returns it hex-encoded.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashJSON computes the hash of the canonical JSON encoding of v.
// encoding/json emits struct fields in declaration order and map keys
// sorted, which makes the encoding deterministic for the types used here.
func HashJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	return HashBytes(data), nil
}

// HasLeadingZeros reports whether a hex-encoded hash starts with at least
// n '0' characters. This is the proof-of-work difficulty predicate.
func HasLeadingZeros(hash string, n int) bool {
	if n <= 0 {
		return true
	}
	if len(hash) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// IsHexHash reports whether s looks like a hex-encoded SHA-256 hash.
func IsHexHash(s string) bool {
	if len(s) != HashSize*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
