// Package commitment computes the hashes that lock a transfer to its secrets.
//
// Two variants exist. Bound mode mixes the claimant's identity into the hash:
// a withdrawal recomputes the commitment with the caller's own identity, so a
// third party who copies the secrets out of a pending withdrawal cannot claim
// the funds from another identity. Bearer mode omits the identity and lets
// anyone who learns the secrets claim; it is kept for compatibility and is not
// safe against front-running. Every hash also covers the ledger instance
// identity, so the same secrets produce unrelated commitments on different
// instances.
package commitment

import (
	"encoding/binary"
	"fmt"

	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/types"
	"golang.org/x/crypto/sha3"
)

type Mode string

const (
	ModeBound  Mode = "bound"
	ModeBearer Mode = "bearer"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBound, ModeBearer:
		return Mode(s), nil
	case "":
		return ModeBound, nil
	default:
		return "", fmt.Errorf("unsupported binding mode: %q", s)
	}
}

// Secrets are the values revealed at withdrawal time.
type Secrets struct {
	First  string `json:"secret1"`
	Second string `json:"secret2,omitempty"`
}

// domain tags keep bound and bearer digests disjoint even for colliding inputs
var (
	tagBound  = []byte("remit/commitment/bound/v1")
	tagBearer = []byte("remit/commitment/bearer/v1")
)

type Scheme struct {
	mode       Mode
	instance   types.Address
	twoSecrets bool
}

func NewScheme(mode Mode, instance types.Address, twoSecrets bool) (*Scheme, error) {
	if mode != ModeBound && mode != ModeBearer {
		return nil, fmt.Errorf("unsupported binding mode: %q", mode)
	}
	if instance.IsZero() {
		return nil, fmt.Errorf("instance identity cannot be empty")
	}
	return &Scheme{mode: mode, instance: instance, twoSecrets: twoSecrets}, nil
}

func (s *Scheme) Mode() Mode {
	return s.mode
}

func (s *Scheme) TwoSecrets() bool {
	return s.twoSecrets
}

// Commit returns keccak256 over length-prefixed fields:
//
//	bound:  tag, instance, claimant, secret1[, secret2]
//	bearer: tag, instance, secret1[, secret2]
//
// claimant is ignored in bearer mode.
func (s *Scheme) Commit(claimant types.Address, secrets Secrets) (types.Hash, error) {
	var out types.Hash
	if err := s.validate(claimant, secrets); err != nil {
		return out, err
	}

	h := sha3.NewLegacyKeccak256()
	switch s.mode {
	case ModeBound:
		writeField(h, tagBound)
		writeField(h, []byte(s.instance))
		writeField(h, []byte(claimant))
	default:
		writeField(h, tagBearer)
		writeField(h, []byte(s.instance))
	}
	writeField(h, []byte(secrets.First))
	if s.twoSecrets {
		writeField(h, []byte(secrets.Second))
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

func (s *Scheme) validate(claimant types.Address, secrets Secrets) error {
	if secrets.First == "" {
		return errors.Newf(errors.ErrInvalidInput, "first secret cannot be empty")
	}
	if s.twoSecrets && secrets.Second == "" {
		return errors.Newf(errors.ErrInvalidInput, "second secret cannot be empty")
	}
	if !s.twoSecrets && secrets.Second != "" {
		return errors.Newf(errors.ErrInvalidInput, "this ledger takes a single secret")
	}
	if s.mode == ModeBound && claimant.IsZero() {
		return errors.Newf(errors.ErrInvalidInput, "claimant identity cannot be empty in bound mode")
	}
	return nil
}

type writer interface {
	Write(p []byte) (int, error)
}

func writeField(w writer, field []byte) {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(field)))
	w.Write(size[:])
	w.Write(field)
}
