package types

import (
	"github.com/holiman/uint256"
)

// LedgerState is the instance-wide mutable state. It is persisted in the same
// batch as every transition so the counters, flags and event head never drift
// from the records they summarize.
type LedgerState struct {
	Instance           Address      `json:"instance"`
	Operator           Address      `json:"operator"`
	BenefitsToWithdraw *uint256.Int `json:"benefits_to_withdraw"`
	Paused             bool         `json:"paused"`
	Killed             bool         `json:"killed"`
	NextTransfer       uint64       `json:"next_transfer"`
	Pending            uint64       `json:"pending"`
	Head               uint64       `json:"head"`
}

func (s *LedgerState) Clone() *LedgerState {
	cp := *s
	cp.BenefitsToWithdraw = new(uint256.Int)
	if s.BenefitsToWithdraw != nil {
		cp.BenefitsToWithdraw.Set(s.BenefitsToWithdraw)
	}
	return &cp
}

// AcceptsDeposits folds kill into pause for deposit gating.
func (s *LedgerState) AcceptsDeposits() bool {
	return !s.Paused && !s.Killed
}

// LedgerStatus is the read-only summary exposed to clients.
type LedgerStatus struct {
	Instance           Address      `json:"instance"`
	Operator           Address      `json:"operator"`
	Paused             bool         `json:"paused"`
	Killed             bool         `json:"killed"`
	BenefitsToWithdraw *uint256.Int `json:"benefits_to_withdraw"`
	Custody            *uint256.Int `json:"custody"`
	Pending            uint64       `json:"pending"`
	Head               uint64       `json:"head"`
}
