// Package ledger is the custody state machine. Every exported operation runs
// to completion under one mutex, validates before it writes, and persists the
// transfer, balances, instance state and its event in a single batch. The
// event is published to subscribers only after that batch is durable.
package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/common"
	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
	"github.com/mezonai/remit/store"
	"github.com/mezonai/remit/types"
)

// Options configure a ledger. Operator, Salt and Genesis only matter the
// first time an instance is created on a given storage.
type Options struct {
	Policy   Policy
	Operator types.Address
	Salt     []byte
	Genesis  []types.Allocation
	Clock    Clock
	Bus      *events.EventBus
}

type Ledger struct {
	mu     sync.Mutex
	policy Policy
	clock  Clock
	scheme *commitment.Scheme
	bus    *events.EventBus

	stores    *store.Stores
	accounts  store.AccountStore
	transfers store.TransferStore
	events    store.EventStore
	txm       *db.DBTxManager

	state *types.LedgerState
}

// New opens the instance persisted in stores, or creates it when the storage
// is empty.
func New(stores *store.Stores, opts Options) (*Ledger, error) {
	if stores == nil {
		return nil, fmt.Errorf("stores cannot be nil")
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger policy: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Bus == nil {
		opts.Bus = events.NewEventBus()
	}

	l := &Ledger{
		policy:    opts.Policy,
		clock:     opts.Clock,
		bus:       opts.Bus,
		stores:    stores,
		accounts:  stores.Accounts,
		transfers: stores.Transfers,
		events:    stores.Events,
		txm:       stores.TxManager,
	}

	state, err := stores.State.Get()
	if err != nil {
		return nil, err
	}
	if state == nil {
		if state, err = l.initialize(opts); err != nil {
			return nil, err
		}
	} else {
		if !opts.Operator.IsZero() && opts.Operator != state.Operator {
			return nil, fmt.Errorf("storage belongs to operator %s, not %s", state.Operator, opts.Operator)
		}
		logx.Info("LEDGER", fmt.Sprintf("Reopened instance %s | head=%d | pending=%d | paused=%v | killed=%v",
			state.Instance, state.Head, state.Pending, state.Paused, state.Killed))
	}
	l.state = state

	l.scheme, err = commitment.NewScheme(opts.Policy.Mode, state.Instance, opts.Policy.TwoSecrets)
	if err != nil {
		return nil, err
	}

	monitoring.SetPendingTransfers(state.Pending)
	monitoring.SetEventHead(state.Head)
	return l, nil
}

func (l *Ledger) initialize(opts Options) (*types.LedgerState, error) {
	if opts.Operator.IsZero() {
		return nil, fmt.Errorf("operator cannot be empty")
	}
	salt := opts.Salt
	if len(salt) == 0 {
		var err error
		if salt, err = common.NewInstanceSalt(); err != nil {
			return nil, err
		}
	}
	state := &types.LedgerState{
		Instance:           common.DeriveInstanceAddress(opts.Operator, salt),
		Operator:           opts.Operator,
		BenefitsToWithdraw: new(uint256.Int),
		Paused:             opts.Policy.StartPaused,
	}

	balances := make(map[types.Address]*uint256.Int)
	order := make([]types.Address, 0, len(opts.Genesis))
	for _, alloc := range opts.Genesis {
		if alloc.Address.IsZero() || alloc.Address == state.Instance {
			return nil, fmt.Errorf("invalid genesis address %q", alloc.Address)
		}
		cur, ok := balances[alloc.Address]
		if !ok {
			cur = new(uint256.Int)
			order = append(order, alloc.Address)
		}
		sum, overflow := new(uint256.Int).AddOverflow(cur, alloc.Amount)
		if overflow {
			return nil, fmt.Errorf("genesis allocation for %s overflows", alloc.Address)
		}
		balances[alloc.Address] = sum
	}

	err := l.txm.WithBatch(func(batch db.DatabaseBatch) error {
		accounts := make([]*types.Account, 0, len(order))
		for _, addr := range order {
			accounts = append(accounts, &types.Account{Address: addr, Balance: balances[addr]})
		}
		if err := l.accounts.StoreBatch(batch, accounts...); err != nil {
			return err
		}
		return l.stores.State.StoreBatch(batch, state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	logx.Info("LEDGER", fmt.Sprintf("Created instance %s | operator=%s | mode=%s | paused=%v | genesis_accounts=%d",
		state.Instance, state.Operator, opts.Policy.Mode, state.Paused, len(order)))
	return state, nil
}

// Instance is the address the ledger holds custody under
func (l *Ledger) Instance() types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Instance
}

func (l *Ledger) Operator() types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Operator
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

// Bus exposes the live event bus for transports that fan events out
func (l *Ledger) Bus() *events.EventBus {
	return l.bus
}

// Commit computes the commitment a depositor should record for claimant and
// secrets on this instance.
func (l *Ledger) Commit(claimant types.Address, secrets commitment.Secrets) (types.Hash, error) {
	return l.scheme.Commit(claimant, secrets)
}

// Transfer returns the record for id, or nil when there is none
func (l *Ledger) Transfer(id types.TransferID) (*types.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfers.GetByID(id)
}

func (l *Ledger) Transfers() ([]*types.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfers.List()
}

func (l *Ledger) Balance(addr types.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts.Balance(addr)
}

func (l *Ledger) Status() (*types.LedgerStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	custody, err := l.accounts.Balance(l.state.Instance)
	if err != nil {
		return nil, err
	}
	s := l.state
	return &types.LedgerStatus{
		Instance:           s.Instance,
		Operator:           s.Operator,
		Paused:             s.Paused,
		Killed:             s.Killed,
		BenefitsToWithdraw: new(uint256.Int).Set(s.BenefitsToWithdraw),
		Custody:            custody,
		Pending:            s.Pending,
		Head:               s.Head,
	}, nil
}

// CheckCustody verifies that live transfer amounts plus uncollected benefits
// add up to exactly what the instance account holds.
func (l *Ledger) CheckCustody() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.transfers.List()
	if err != nil {
		return err
	}
	expected := new(uint256.Int).Set(l.state.BenefitsToWithdraw)
	var pending uint64
	for _, t := range all {
		if t.Withdrawn() {
			continue
		}
		pending++
		if _, overflow := expected.AddOverflow(expected, t.Amount); overflow {
			return errors.Newf(errors.ErrArithmeticFault, "custody sum overflows")
		}
	}
	held, err := l.accounts.Balance(l.state.Instance)
	if err != nil {
		return err
	}
	if !held.Eq(expected) {
		return errors.Newf(errors.ErrInternal, "custody mismatch: instance holds %s, records account for %s", held.Dec(), expected.Dec())
	}
	if pending != l.state.Pending {
		return errors.Newf(errors.ErrInternal, "pending counter is %d, records show %d", l.state.Pending, pending)
	}
	return nil
}
