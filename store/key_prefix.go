package store

// Declare database key prefix for objects
const (
	PrefixAccount = "account:"

	PrefixTransfer   = "transfer:"
	PrefixCommitment = "commitment:"

	// PrefixEvent is followed by the 8-byte big-endian sequence number
	PrefixEvent = "event:"

	KeyLedgerState = "ledger:state"
)
