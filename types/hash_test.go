package types

import (
	"strings"
	"testing"
)

func TestHashBytesDeterministic(t *testing.T) {
	a := HashBytes([]byte("evidence"))
	b := HashBytes([]byte("evidence"))
	if a != b {
		t.Errorf("same input produced different hashes: %s vs %s", a, b)
	}

	c := HashBytes([]byte("evidenc3"))
	if a == c {
		t.Error("different inputs produced the same hash")
	}
}

func TestHashBytesHexEncoding(t *testing.T) {
	h := HashBytes([]byte("x"))
	if len(h) != HashSize*2 {
		t.Errorf("expected %d hex chars, got %d", HashSize*2, len(h))
	}
	if !IsHexHash(h) {
		t.Errorf("hash is not valid hex: %s", h)
	}
}

func TestHasLeadingZeros(t *testing.T) {
	cases := []struct {
		hash string
		n    int
		want bool
	}{
		{"00ab", 2, true},
		{"00ab", 3, false},
		{"0", 2, false},
		{"abcd", 0, true},
		{"abcd", -1, true},
		{"0000", 4, true},
	}

	for _, tc := range cases {
		if got := HasLeadingZeros(tc.hash, tc.n); got != tc.want {
			t.Errorf("HasLeadingZeros(%q, %d) = %v, want %v", tc.hash, tc.n, got, tc.want)
		}
	}
}

func TestHashJSONSortsMapKeys(t *testing.T) {
	a, err := HashJSON(map[string]interface{}{"b": 1, "a": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := HashJSON(map[string]interface{}{"a": 2, "b": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Error("map key order changed the hash")
	}
}

func TestIsHexHashRejectsNonHex(t *testing.T) {
	bad := strings.Repeat("z", HashSize*2)
	if IsHexHash(bad) {
		t.Error("non-hex string accepted")
	}
	if IsHexHash("00ff") {
		t.Error("short string accepted")
	}
}
