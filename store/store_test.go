package store

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStoreBalances(t *testing.T) {
	s := NewMemoryStores()

	bal, err := s.Accounts.Balance("alice")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	err = s.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return s.Accounts.StoreBatch(batch,
			&types.Account{Address: "alice", Balance: uint256.NewInt(10)},
			&types.Account{Address: "bob", Balance: uint256.NewInt(20)},
		)
	})
	require.NoError(t, err)

	bal, err = s.Accounts.Balance("bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), bal.Uint64())

	all, err := s.Accounts.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTransferStoreCommitmentIndex(t *testing.T) {
	s := NewMemoryStores()
	h := types.Hash{1, 2, 3}
	tr := &types.Transfer{
		ID:             "1",
		Commitment:     h,
		Sender:         "alice",
		Amount:         uint256.NewInt(5),
		CreatedAt:      time.Unix(100, 0).UTC(),
		ExpirationTime: time.Unix(200, 0).UTC(),
		Status:         types.TransferPending,
	}
	require.NoError(t, s.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return s.Transfers.StoreBatch(batch, tr)
	}))

	got, err := s.Transfers.GetByCommitment(h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, uint64(5), got.Amount.Uint64())
	assert.True(t, got.ExpirationTime.Equal(tr.ExpirationTime))

	missing, err := s.Transfers.GetByCommitment(types.Hash{9})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := NewMemoryStores()
	state, err := s.State.Get()
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, s.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return s.State.StoreBatch(batch, &types.LedgerState{
			Instance:           "inst",
			Operator:           "op",
			BenefitsToWithdraw: uint256.NewInt(3),
			Paused:             true,
			Head:               4,
		})
	}))
	state, err = s.State.Get()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Paused)
	assert.Equal(t, uint64(4), state.Head)
	assert.Equal(t, uint64(3), state.BenefitsToWithdraw.Uint64())
}

func TestEventStoreRange(t *testing.T) {
	s := NewMemoryStores()
	at := time.Unix(1000, 0).UTC()
	require.NoError(t, s.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		for seq := uint64(1); seq <= 3; seq++ {
			ev := events.New(seq, "inst", at, &events.Paused{Account: "op"})
			if err := s.Events.AppendBatch(batch, ev); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := s.Events.Range(2, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Seq)
	assert.Equal(t, events.KindPaused, got[1].Kind())

	_, err = s.Events.Range(3, 5)
	assert.Error(t, err)

	empty, err := s.Events.Range(4, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreConfigValidate(t *testing.T) {
	assert.NoError(t, (&StoreConfig{Type: MemoryStoreType}).Validate())
	assert.Error(t, (&StoreConfig{Type: LevelDBStoreType}).Validate())
	assert.Error(t, (&StoreConfig{Type: "rocksdb", Directory: "x"}).Validate())
	assert.Error(t, (&StoreConfig{}).Validate())
}

func TestCreateStoresOnBolt(t *testing.T) {
	s, err := CreateStores(&StoreConfig{Type: BoltStoreType, Directory: t.TempDir()})
	require.NoError(t, err)
	defer s.MustClose()

	require.NoError(t, s.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return s.Accounts.StoreBatch(batch, &types.Account{Address: "x", Balance: uint256.NewInt(1)})
	}))
	bal, err := s.Accounts.Balance("x")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), bal.Uint64())
}
