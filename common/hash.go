package common

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the expected length of a hash (in bytes).
const HashSize = 32

// Hash represents the 32-byte Keccak-256 digest of arbitrary data.
type Hash [HashSize]byte

var EmptyHash = Hash{}

// BytesToHash returns Hash with value b.
// If b is larger than HashSize, b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash returns Hash with byte values of s.
func HexToHash(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b), nil
}

// SetBytes sets the hash to the value of b.
// If b is larger than HashSize, b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashSize {
		b = b[len(b)-HashSize:]
	}
	copy(h[HashSize-len(b):], b)
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Empty() bool { return h == EmptyHash }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(input []byte) error {
	decoded, err := HexToHash(string(input))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", input, err)
	}
	*h = decoded
	return nil
}
