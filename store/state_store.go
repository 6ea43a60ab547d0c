package store

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/types"
)

// StateStore holds the single instance-wide state record.
type StateStore interface {
	// Get returns nil when the instance has never been initialized
	Get() (*types.LedgerState, error)
	StoreBatch(batch db.DatabaseBatch, state *types.LedgerState) error
}

type GenericStateStore struct {
	provider db.DatabaseProvider
}

func NewGenericStateStore(provider db.DatabaseProvider) (*GenericStateStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericStateStore{provider: provider}, nil
}

func (s *GenericStateStore) Get() (*types.LedgerState, error) {
	value, err := s.provider.Get([]byte(KeyLedgerState))
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger state: %w", err)
	}
	if len(value) == 0 {
		return nil, nil
	}
	var state types.LedgerState
	if err := jsonx.Unmarshal(value, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger state: %w", err)
	}
	if state.BenefitsToWithdraw == nil {
		state.BenefitsToWithdraw = new(uint256.Int)
	}
	return &state, nil
}

func (s *GenericStateStore) StoreBatch(batch db.DatabaseBatch, state *types.LedgerState) error {
	value, err := jsonx.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger state: %w", err)
	}
	batch.Put([]byte(KeyLedgerState), value)
	return nil
}
