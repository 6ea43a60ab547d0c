package store

import (
	"fmt"
	"sort"

	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/types"
)

// TransferStore keeps custody records keyed by transfer ID plus a secondary
// index from commitment to ID.
type TransferStore interface {
	GetByID(id types.TransferID) (*types.Transfer, error)
	GetByCommitment(commitment types.Hash) (*types.Transfer, error)
	StoreBatch(batch db.DatabaseBatch, transfer *types.Transfer) error
	List() ([]*types.Transfer, error)
}

type GenericTransferStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericTransferStore(dbProvider db.DatabaseProvider) (*GenericTransferStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericTransferStore{dbProvider: dbProvider}, nil
}

func (ts *GenericTransferStore) GetByID(id types.TransferID) (*types.Transfer, error) {
	data, err := ts.dbProvider.Get(transferKey(id))
	if err != nil {
		return nil, fmt.Errorf("could not get transfer %s: %w", id, err)
	}
	if data == nil {
		return nil, nil
	}
	var t types.Transfer
	if err := jsonx.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer %s: %w", id, err)
	}
	return &t, nil
}

func (ts *GenericTransferStore) GetByCommitment(commitment types.Hash) (*types.Transfer, error) {
	id, err := ts.dbProvider.Get(commitmentKey(commitment))
	if err != nil {
		return nil, fmt.Errorf("could not resolve commitment %s: %w", commitment, err)
	}
	if id == nil {
		return nil, nil
	}
	return ts.GetByID(types.TransferID(id))
}

// StoreBatch stages the record and its commitment index entry
func (ts *GenericTransferStore) StoreBatch(batch db.DatabaseBatch, transfer *types.Transfer) error {
	if transfer.ID == "" {
		return fmt.Errorf("transfer id cannot be empty")
	}
	data, err := jsonx.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer %s: %w", transfer.ID, err)
	}
	batch.Put(transferKey(transfer.ID), data)
	batch.Put(commitmentKey(transfer.Commitment), []byte(transfer.ID))
	return nil
}

// List returns every record ordered by creation time, then ID
func (ts *GenericTransferStore) List() ([]*types.Transfer, error) {
	var (
		out     []*types.Transfer
		iterErr error
	)
	err := ts.dbProvider.IteratePrefix([]byte(PrefixTransfer), func(key, value []byte) bool {
		var t types.Transfer
		if err := jsonx.Unmarshal(value, &t); err != nil {
			iterErr = fmt.Errorf("failed to unmarshal transfer at %s: %w", key, err)
			return false
		}
		out = append(out, &t)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func transferKey(id types.TransferID) []byte {
	return []byte(PrefixTransfer + string(id))
}

func commitmentKey(h types.Hash) []byte {
	return []byte(PrefixCommitment + h.Hex())
}
