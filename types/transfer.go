package types

import (
	"time"

	"github.com/holiman/uint256"
)

// TransferID identifies a transfer in events and in the view. Depending on
// the ledger key scheme it is either a decimal sequence number or the hex
// form of the commitment.
type TransferID string

type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferWithdrawn TransferStatus = "WITHDRAWN"
	TransferRefunded  TransferStatus = "REFUNDED"
)

// Transfer is the custody record for one deposit. Records are never deleted;
// once settled they stay as an audit trail and keep the commitment reserved.
type Transfer struct {
	ID             TransferID     `json:"id"`
	Commitment     Hash           `json:"commitment"`
	Sender         Address        `json:"sender"`
	Claimant       Address        `json:"claimant,omitempty"`
	Amount         *uint256.Int   `json:"amount"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpirationTime time.Time      `json:"expiration_time"`
	Status         TransferStatus `json:"status"`
}

// Withdrawn reports whether funds have left custody, by either path.
func (t *Transfer) Withdrawn() bool {
	return t.Status != TransferPending
}

func (t *Transfer) Clone() *Transfer {
	cp := *t
	if t.Amount != nil {
		cp.Amount = new(uint256.Int).Set(t.Amount)
	}
	return &cp
}
