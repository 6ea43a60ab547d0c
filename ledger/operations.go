package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
)

const (
	OpDeposit          = "deposit"
	OpWithdraw         = "withdraw"
	OpRefund           = "refund"
	OpWithdrawBenefits = "withdraw_benefits"
	OpPause            = "pause"
	OpUnpause          = "unpause"
	OpKill             = "kill"
	OpReceive          = "receive"
)

type DepositRequest struct {
	Commitment types.Hash
	// Claimant is informational; authorization comes from the commitment
	Claimant types.Address
	Window   time.Duration
	Amount   *uint256.Int
}

// transition is everything one accepted operation writes
type transition struct {
	transfer *types.Transfer
	accounts []*types.Account
	state    *types.LedgerState
	payload  events.Payload
}

// commit persists tr atomically, then swaps the in-memory state and
// publishes. Callers hold l.mu and have finished all validation.
func (l *Ledger) commit(op string, now time.Time, tr *transition) (*events.Event, error) {
	tr.state.Head = l.state.Head + 1
	ev := events.New(tr.state.Head, tr.state.Instance, now, tr.payload)

	err := l.txm.WithBatch(func(batch db.DatabaseBatch) error {
		if tr.transfer != nil {
			if err := l.transfers.StoreBatch(batch, tr.transfer); err != nil {
				return err
			}
		}
		if err := l.accounts.StoreBatch(batch, tr.accounts...); err != nil {
			return err
		}
		if err := l.stores.State.StoreBatch(batch, tr.state); err != nil {
			return err
		}
		return l.events.AppendBatch(batch, ev)
	})
	if err != nil {
		logx.Error("LEDGER", fmt.Sprintf("Failed to persist %s: %v", op, err))
		return nil, errors.Newf(errors.ErrInternal, "failed to persist %s: %v", op, err)
	}

	l.state = tr.state
	l.bus.Publish(ev)

	monitoring.RecordLedgerOp(op, monitoring.ResultOK, "")
	monitoring.SetPendingTransfers(l.state.Pending)
	monitoring.SetEventHead(l.state.Head)
	logx.Info("LEDGER", fmt.Sprintf("Applied %s | event=%s", op, ev))
	return ev, nil
}

func (l *Ledger) reject(op string, err error) error {
	monitoring.RecordLedgerOp(op, monitoring.ResultRejected, string(errors.CodeOf(err)))
	logx.Debug("LEDGER", fmt.Sprintf("Rejected %s: %v", op, err))
	return err
}

func (l *Ledger) fail(op string, err error) error {
	monitoring.RecordLedgerOp(op, monitoring.ResultFailed, string(errors.ErrCodeInternal))
	logx.Error("LEDGER", fmt.Sprintf("Failed %s: %v", op, err))
	return errors.Newf(errors.ErrInternal, "%s: %v", op, err)
}

// account loads addr with a zero balance when it has never been seen
func (l *Ledger) account(addr types.Address) (*types.Account, error) {
	acc, err := l.accounts.GetByAddr(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{Address: addr, Balance: new(uint256.Int)}
	}
	return acc, nil
}

// move returns from and to after moving amount between them
func (l *Ledger) move(from, to types.Address, amount *uint256.Int) ([]*types.Account, error) {
	if from == to {
		return nil, errors.Newf(errors.ErrInvalidInput, "cannot move value from %s to itself", from)
	}
	src, err := l.account(from)
	if err != nil {
		return nil, err
	}
	dst, err := l.account(to)
	if err != nil {
		return nil, err
	}
	if src.Balance.Lt(amount) {
		return nil, errors.Newf(errors.ErrInsufficientFunds, "%s holds %s, needs %s", from, src.Balance.Dec(), amount.Dec())
	}
	srcBal, underflow := new(uint256.Int).SubOverflow(src.Balance, amount)
	if underflow {
		return nil, errors.ErrArithmeticFault
	}
	dstBal, overflow := new(uint256.Int).AddOverflow(dst.Balance, amount)
	if overflow {
		return nil, errors.ErrArithmeticFault
	}
	return []*types.Account{
		{Address: from, Balance: srcBal},
		{Address: to, Balance: dstBal},
	}, nil
}

// Deposit takes amount from caller into custody under req.Commitment
func (l *Ledger) Deposit(caller types.Address, req DepositRequest) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state := l.state
	switch {
	case state.Killed:
		return nil, l.reject(OpDeposit, errors.ErrInstanceKilled)
	case state.Paused:
		return nil, l.reject(OpDeposit, errors.ErrInstanceLockedOut)
	case caller.IsZero() || caller == state.Instance:
		return nil, l.reject(OpDeposit, errors.Newf(errors.ErrInvalidInput, "invalid caller %q", caller))
	case req.Commitment.IsZero():
		return nil, l.reject(OpDeposit, errors.Newf(errors.ErrInvalidInput, "commitment cannot be empty"))
	case req.Amount == nil || req.Amount.IsZero():
		return nil, l.reject(OpDeposit, errors.Newf(errors.ErrInvalidInput, "amount must be greater than zero"))
	case req.Window <= 0 || req.Window > l.policy.MaxExpiration:
		return nil, l.reject(OpDeposit, errors.Newf(errors.ErrInvalidExpiration,
			"expiration window %s must be within (0, %s]", req.Window, l.policy.MaxExpiration))
	}

	existing, err := l.transfers.GetByCommitment(req.Commitment)
	if err != nil {
		return nil, l.fail(OpDeposit, err)
	}
	if existing != nil {
		return nil, l.reject(OpDeposit, errors.ErrDuplicateCommitment)
	}

	accounts, err := l.move(caller, state.Instance, req.Amount)
	if err != nil {
		return nil, l.reject(OpDeposit, err)
	}

	next := state.Clone()
	next.NextTransfer++
	next.Pending++
	id := types.TransferID(strconv.FormatUint(next.NextTransfer, 10))
	if l.policy.KeyScheme == KeyCommitment {
		id = types.TransferID(req.Commitment.Hex())
	}

	claimant := req.Claimant
	transfer := &types.Transfer{
		ID:             id,
		Commitment:     req.Commitment,
		Sender:         caller,
		Claimant:       claimant,
		Amount:         new(uint256.Int).Set(req.Amount),
		CreatedAt:      now,
		ExpirationTime: now.Add(req.Window),
		Status:         types.TransferPending,
	}

	return l.commit(OpDeposit, now, &transition{
		transfer: transfer,
		accounts: accounts,
		state:    next,
		payload: &events.TransferCreated{
			TransferID:     transfer.ID,
			Commitment:     transfer.Commitment,
			Sender:         transfer.Sender,
			Claimant:       transfer.Claimant,
			Amount:         new(uint256.Int).Set(transfer.Amount),
			ExpirationTime: transfer.ExpirationTime,
		},
	})
}

// Withdraw pays a pending transfer out to caller. The commitment is
// recomputed from caller and secrets; an empty id looks the transfer up by
// that commitment.
func (l *Ledger) Withdraw(caller types.Address, id types.TransferID, secrets commitment.Secrets) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if caller.IsZero() {
		return nil, l.reject(OpWithdraw, errors.Newf(errors.ErrInvalidInput, "caller cannot be empty"))
	}
	if caller == l.state.Instance {
		return nil, l.reject(OpWithdraw, errors.Newf(errors.ErrInvalidInput, "the instance cannot withdraw from itself"))
	}
	hash, err := l.scheme.Commit(caller, secrets)
	if err != nil {
		return nil, l.reject(OpWithdraw, err)
	}

	var transfer *types.Transfer
	if id == "" {
		transfer, err = l.transfers.GetByCommitment(hash)
	} else {
		transfer, err = l.transfers.GetByID(id)
	}
	if err != nil {
		return nil, l.fail(OpWithdraw, err)
	}
	// a missing transfer and a wrong secret look the same to the caller
	if transfer == nil || transfer.Commitment != hash {
		return nil, l.reject(OpWithdraw, errors.ErrAuthorizationFailed)
	}
	if transfer.Withdrawn() {
		return nil, l.reject(OpWithdraw, errors.ErrAlreadySettled)
	}
	if !now.Before(transfer.ExpirationTime) {
		return nil, l.reject(OpWithdraw, errors.ErrExpired)
	}

	fee := new(uint256.Int)
	if !transfer.Amount.Lt(l.policy.FeeThreshold) {
		fee.Set(l.policy.Fee)
	}
	payout, underflow := new(uint256.Int).SubOverflow(transfer.Amount, fee)
	if underflow {
		return nil, l.reject(OpWithdraw, errors.ErrArithmeticFault)
	}

	next := l.state.Clone()
	if _, overflow := next.BenefitsToWithdraw.AddOverflow(next.BenefitsToWithdraw, fee); overflow {
		return nil, l.reject(OpWithdraw, errors.ErrArithmeticFault)
	}
	next.Pending--

	accounts, err := l.move(next.Instance, caller, payout)
	if err != nil {
		// custody always covers a live transfer; anything else is corruption
		return nil, l.reject(OpWithdraw, errors.Newf(errors.ErrArithmeticFault, "custody cannot cover payout: %v", err))
	}

	settled := transfer.Clone()
	settled.Status = types.TransferWithdrawn

	logx.Info("LEDGER", fmt.Sprintf("Withdrawing %s | payout=%s | fee=%s | claimant=%s",
		settled.ID, utils.FormatUnits(payout), utils.FormatUnits(fee), caller))

	return l.commit(OpWithdraw, now, &transition{
		transfer: settled,
		accounts: accounts,
		state:    next,
		payload: &events.TransferWithdrawn{
			TransferID:   settled.ID,
			Commitment:   settled.Commitment,
			Sender:       settled.Sender,
			Claimant:     caller,
			Amount:       payout,
			CollectedFee: fee,
		},
	})
}

// Refund returns an expired transfer to its sender, without a fee
func (l *Ledger) Refund(caller types.Address, id types.TransferID) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if id == "" {
		return nil, l.reject(OpRefund, errors.Newf(errors.ErrInvalidInput, "transfer id cannot be empty"))
	}
	transfer, err := l.transfers.GetByID(id)
	if err != nil {
		return nil, l.fail(OpRefund, err)
	}
	// unknown ids answer like foreign ones
	if transfer == nil || caller.IsZero() || transfer.Sender != caller {
		return nil, l.reject(OpRefund, errors.ErrNotSender)
	}
	if transfer.Withdrawn() {
		return nil, l.reject(OpRefund, errors.ErrAlreadySettled)
	}
	if now.Before(transfer.ExpirationTime) {
		return nil, l.reject(OpRefund, errors.ErrNotYetExpired)
	}

	accounts, err := l.move(l.state.Instance, caller, transfer.Amount)
	if err != nil {
		return nil, l.reject(OpRefund, errors.Newf(errors.ErrArithmeticFault, "custody cannot cover refund: %v", err))
	}
	next := l.state.Clone()
	next.Pending--

	settled := transfer.Clone()
	settled.Status = types.TransferRefunded

	return l.commit(OpRefund, now, &transition{
		transfer: settled,
		accounts: accounts,
		state:    next,
		payload: &events.TransferRefunded{
			TransferID: settled.ID,
			Commitment: settled.Commitment,
			Sender:     settled.Sender,
			Amount:     new(uint256.Int).Set(settled.Amount),
		},
	})
}

// WithdrawBenefits pays every collected fee to the operator
func (l *Ledger) WithdrawBenefits(caller types.Address) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state := l.state
	if caller != state.Operator {
		return nil, l.reject(OpWithdrawBenefits, errors.ErrNotOperator)
	}
	if state.BenefitsToWithdraw.IsZero() {
		return nil, l.reject(OpWithdrawBenefits, errors.ErrNothingToWithdraw)
	}
	if l.policy.BenefitsDrain == DrainIdle && state.Pending > 0 {
		return nil, l.reject(OpWithdrawBenefits, errors.ErrTransfersOutstanding)
	}

	amount := new(uint256.Int).Set(state.BenefitsToWithdraw)
	accounts, err := l.move(state.Instance, caller, amount)
	if err != nil {
		return nil, l.reject(OpWithdrawBenefits, errors.Newf(errors.ErrArithmeticFault, "custody cannot cover benefits: %v", err))
	}
	next := state.Clone()
	next.BenefitsToWithdraw.Clear()

	return l.commit(OpWithdrawBenefits, now, &transition{
		accounts: accounts,
		state:    next,
		payload:  &events.BenefitsWithdrawn{Operator: caller, Amount: amount},
	})
}

// breaker runs the shared checks of the circuit-breaker operations
func (l *Ledger) breaker(op string, caller types.Address) error {
	if caller != l.state.Operator {
		return l.reject(op, errors.ErrNotOperator)
	}
	if l.state.Killed {
		return l.reject(op, errors.ErrInstanceKilled)
	}
	return nil
}

// Pause stops new deposits until Unpause
func (l *Ledger) Pause(caller types.Address) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.breaker(OpPause, caller); err != nil {
		return nil, err
	}
	if l.state.Paused {
		return nil, l.reject(OpPause, errors.ErrAlreadyPaused)
	}
	next := l.state.Clone()
	next.Paused = true
	return l.commit(OpPause, l.clock.Now(), &transition{
		state:   next,
		payload: &events.Paused{Account: caller},
	})
}

func (l *Ledger) Unpause(caller types.Address) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.breaker(OpUnpause, caller); err != nil {
		return nil, err
	}
	if !l.state.Paused {
		return nil, l.reject(OpUnpause, errors.ErrNotPaused)
	}
	next := l.state.Clone()
	next.Paused = false
	return l.commit(OpUnpause, l.clock.Now(), &transition{
		state:   next,
		payload: &events.Unpaused{Account: caller},
	})
}

// Kill permanently stops deposits. Pending transfers can still be withdrawn
// or refunded and benefits can still be drained.
func (l *Ledger) Kill(caller types.Address) (*events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.breaker(OpKill, caller); err != nil {
		return nil, err
	}
	next := l.state.Clone()
	next.Killed = true
	return l.commit(OpKill, l.clock.Now(), &transition{
		state:   next,
		payload: &events.Killed{Account: caller},
	})
}

// Receive is bare value sent without an operation. It is always refused.
func (l *Ledger) Receive(caller types.Address, amount *uint256.Int) error {
	return l.reject(OpReceive, errors.Newf(errors.ErrInvalidInput, "ledger does not accept value without an operation"))
}
