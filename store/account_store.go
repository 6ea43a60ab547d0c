package store

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/types"
)

type AccountStore interface {
	GetByAddr(addr types.Address) (*types.Account, error)
	// Balance returns zero for unknown accounts
	Balance(addr types.Address) (*uint256.Int, error)
	StoreBatch(batch db.DatabaseBatch, accounts ...*types.Account) error
	List() ([]*types.Account, error)
}

type GenericAccountStore struct {
	dbProvider db.DatabaseProvider
}

func NewGenericAccountStore(dbProvider db.DatabaseProvider) (*GenericAccountStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericAccountStore{
		dbProvider: dbProvider,
	}, nil
}

func (as *GenericAccountStore) GetByAddr(addr types.Address) (*types.Account, error) {
	data, err := as.dbProvider.Get(as.getDbKey(addr))
	if err != nil {
		return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
	}
	if data == nil {
		return nil, nil
	}

	var acc types.Account
	if err := jsonx.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	return &acc, nil
}

func (as *GenericAccountStore) Balance(addr types.Address) (*uint256.Int, error) {
	acc, err := as.GetByAddr(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return new(uint256.Int), nil
	}
	return acc.Balance, nil
}

// StoreBatch stages the accounts into batch. Nothing is written until the
// batch is.
func (as *GenericAccountStore) StoreBatch(batch db.DatabaseBatch, accounts ...*types.Account) error {
	for _, account := range accounts {
		if account.Address.IsZero() {
			return fmt.Errorf("account address cannot be empty")
		}
		data, err := jsonx.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account %s: %w", account.Address, err)
		}
		batch.Put(as.getDbKey(account.Address), data)
	}
	return nil
}

func (as *GenericAccountStore) List() ([]*types.Account, error) {
	var (
		out     []*types.Account
		iterErr error
	)
	err := as.dbProvider.IteratePrefix([]byte(PrefixAccount), func(key, value []byte) bool {
		var acc types.Account
		if err := jsonx.Unmarshal(value, &acc); err != nil {
			iterErr = fmt.Errorf("failed to unmarshal account at %s: %w", key, err)
			return false
		}
		out = append(out, &acc)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		logx.Error("ACCOUNT_STORE", iterErr.Error())
		return nil, iterErr
	}
	return out, nil
}

func (as *GenericAccountStore) getDbKey(addr types.Address) []byte {
	return []byte(PrefixAccount + string(addr))
}
