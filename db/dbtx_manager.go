package db

import (
	"fmt"

	"github.com/mezonai/remit/logx"
)

// DBTxManager groups writes from several stores into one batch so that a
// ledger operation persists all of its effects or none of them.
type DBTxManager struct {
	provider DatabaseProvider
}

func NewDBTxManager(provider DatabaseProvider) *DBTxManager {
	return &DBTxManager{provider: provider}
}

// Provider returns the underlying provider
func (tm *DBTxManager) Provider() DatabaseProvider {
	return tm.provider
}

// WithBatch runs fn against a fresh batch. The batch is written only when fn
// returns nil; otherwise it is discarded and nothing reaches the provider.
func (tm *DBTxManager) WithBatch(fn func(batch DatabaseBatch) error) error {
	batch := tm.provider.Batch()
	defer func() {
		if err := batch.Close(); err != nil {
			logx.Error("TX_MANAGER", "Failed to close batch:", err)
		}
	}()

	if err := fn(batch); err != nil {
		batch.Reset()
		return fmt.Errorf("batch aborted: %w", err)
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}
