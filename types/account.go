package types

import (
	"github.com/holiman/uint256"
)

// Address is an opaque, comparable caller identity supplied by the wallet
// provider. The ledger never interprets it beyond equality.
type Address string

func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}

type Account struct {
	Address Address      `json:"address"`
	Balance *uint256.Int `json:"balance"`
}

// Allocation credits an address at genesis.
type Allocation struct {
	Address Address
	Amount  *uint256.Int
}
