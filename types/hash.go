package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const HashLength = 32

// Hash is a keccak-256 digest, rendered as 0x-prefixed hex.
type Hash [HashLength]byte

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash accepts the hex form with or without the 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != HashLength {
		return h, fmt.Errorf("invalid hash length: expected %d bytes, got %d", HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}
