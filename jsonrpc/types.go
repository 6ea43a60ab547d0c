package jsonrpc

import (
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/types"
)

// Amounts travel as base-unit decimal strings. Callers are identified by the
// wallet provider in front of this server and passed through as-is.

type HashParams struct {
	Claimant string `json:"claimant"`
	Secret1  string `json:"secret1"`
	Secret2  string `json:"secret2,omitempty"`
}

type HashResult struct {
	Commitment types.Hash `json:"commitment"`
}

type DepositParams struct {
	Caller     string `json:"caller"`
	Commitment string `json:"commitment"`
	Claimant   string `json:"claimant,omitempty"`
	// Window is a Go duration such as "120h"
	Window string `json:"window"`
	Amount string `json:"amount"`
}

type WithdrawParams struct {
	Caller  string `json:"caller"`
	ID      string `json:"id,omitempty"`
	Secret1 string `json:"secret1"`
	Secret2 string `json:"secret2,omitempty"`
}

type RefundParams struct {
	Caller string `json:"caller"`
	ID     string `json:"id"`
}

type CallerParams struct {
	Caller string `json:"caller"`
}

// EventResult wraps the event an accepted operation emitted
type EventResult struct {
	Event *events.Event `json:"event"`
}

type TransferParams struct {
	ID string `json:"id"`
}

type BalanceParams struct {
	Address string `json:"address"`
}

type BalanceResult struct {
	Address  types.Address `json:"address"`
	Balance  string        `json:"balance"`
	Decimals uint32        `json:"decimals"`
}

type HeadResult struct {
	Head uint64 `json:"head"`
}

type RangeParams struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type RangeResult struct {
	Events []*events.Event `json:"events"`
}

type HealthResult struct {
	Status   string        `json:"status"`
	Instance types.Address `json:"instance"`
	Head     uint64        `json:"head"`
}
