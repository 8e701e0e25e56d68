package types

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/vouchsafe/vouchsafe/common"
)

// AddrSize is the expected length of an address (in bytes).
const AddrSize = 20

// Address identifies a protocol participant (the client or an authorized
// server). Its canonical encoding is the raw 20 bytes; that exact encoding
// is what gets fed into commitment digests.
type Address [AddrSize]byte

var EmptyAddress = Address{}

// BytesToAddress returns Address with value b.
// If b is larger than AddrSize, b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress returns Address with byte values of s.
func HexToAddress(s string) Address {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}
	}
	return BytesToAddress(b)
}

func (a *Address) SetBytes(b []byte) {
	if len(b) > AddrSize {
		b = b[len(b)-AddrSize:]
	}
	copy(a[AddrSize-len(b):], b)
}

// Bytes returns the canonical encoding of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hash converts an address to a hash by left-padding it with zeros.
func (a Address) Hash() common.Hash { return common.BytesToHash(a[:]) }

func (a Address) Equal(b Address) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}

func (a Address) IsEmpty() bool {
	return a.Equal(EmptyAddress)
}

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(input []byte) error {
	s := string(input)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", input, err)
	}
	if len(b) != AddrSize {
		return fmt.Errorf("invalid address length %d, want %d", len(b), AddrSize)
	}
	copy(a[:], b)
	return nil
}
