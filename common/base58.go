package common

import (
	"crypto/rand"
	"fmt"

	"github.com/mezonai/remit/types"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

const instanceSaltSize = 16

// EncodeBytesToBase58 encodes bytes directly to base58
func EncodeBytesToBase58(bytes []byte) string {
	return base58.Encode(bytes)
}

// DecodeBase58ToBytes decodes base58 string to bytes
func DecodeBase58ToBytes(base58Str string) ([]byte, error) {
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	return bytes, nil
}

// IsValidBase58 checks if a string is valid base58
func IsValidBase58(str string) bool {
	decoded, err := base58.Decode(str)
	return err == nil && len(decoded) > 0
}

// NewInstanceSalt returns random bytes used once, when a ledger instance is
// first created, to make its address unique.
func NewInstanceSalt() ([]byte, error) {
	salt := make([]byte, instanceSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to read instance salt: %w", err)
	}
	return salt, nil
}

// DeriveInstanceAddress binds a ledger instance identity to its operator and
// a salt: base58(keccak256(operator || salt)).
func DeriveInstanceAddress(operator types.Address, salt []byte) types.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(operator))
	h.Write(salt)
	return types.Address(base58.Encode(h.Sum(nil)))
}
