package viewsync

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/types"
)

var (
	// ErrSequenceGap means an event arrived before one or more of its
	// predecessors. The caller must fetch the missing range first.
	ErrSequenceGap = stderrors.New("event sequence gap")

	ErrForeignInstance = stderrors.New("event from another instance")
)

// Row is one visible transfer. Amount drops to zero once the transfer is
// settled by either path.
type Row struct {
	ID             types.TransferID `json:"id"`
	Sender         types.Address    `json:"sender"`
	Claimant       types.Address    `json:"claimant,omitempty"`
	Amount         *uint256.Int     `json:"amount"`
	ExpirationTime time.Time        `json:"expiration_time"`
}

// Snapshot is an immutable copy of a projection
type Snapshot struct {
	Rows              []Row        `json:"rows"`
	AvailableBenefits *uint256.Int `json:"available_benefits"`
	LastSeq           uint64       `json:"last_seq"`
	Paused            bool         `json:"paused"`
	Killed            bool         `json:"killed"`
}

// Projection folds ledger events, in sequence order, into the read model.
// It is not safe for concurrent use.
type Projection struct {
	instance types.Address
	rows     map[types.TransferID]*Row
	order    []types.TransferID
	benefits *uint256.Int
	lastSeq  uint64
	paused   bool
	killed   bool
}

// NewProjection builds an empty projection. A non-empty instance makes Apply
// refuse events emitted by any other instance.
func NewProjection(instance types.Address) *Projection {
	return &Projection{
		instance: instance,
		rows:     make(map[types.TransferID]*Row),
		benefits: new(uint256.Int),
	}
}

func (p *Projection) LastSeq() uint64 {
	return p.lastSeq
}

// Apply folds ev into the projection. Events at or below LastSeq are
// duplicates and report applied=false with no error; an event further ahead
// than LastSeq+1 returns ErrSequenceGap and changes nothing.
func (p *Projection) Apply(ev *events.Event) (applied bool, err error) {
	if ev == nil {
		return false, fmt.Errorf("nil event")
	}
	if p.instance != "" && ev.Instance != p.instance {
		return false, fmt.Errorf("%w: %s", ErrForeignInstance, ev.Instance)
	}
	if ev.Seq <= p.lastSeq {
		return false, nil
	}
	if ev.Seq != p.lastSeq+1 {
		return false, fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, p.lastSeq+1, ev.Seq)
	}

	switch payload := ev.Payload.(type) {
	case *events.TransferCreated:
		if _, exists := p.rows[payload.TransferID]; !exists {
			p.order = append(p.order, payload.TransferID)
		}
		p.rows[payload.TransferID] = &Row{
			ID:             payload.TransferID,
			Sender:         payload.Sender,
			Claimant:       payload.Claimant,
			Amount:         cloneAmount(payload.Amount),
			ExpirationTime: payload.ExpirationTime,
		}
	case *events.TransferWithdrawn:
		p.settle(ev, payload.TransferID)
		if payload.CollectedFee != nil {
			if _, overflow := p.benefits.AddOverflow(p.benefits, payload.CollectedFee); overflow {
				logx.Error("VIEWSYNC", fmt.Sprintf("Benefits overflow at %s, clamping", ev))
				p.benefits.SetAllOne()
			}
		}
	case *events.TransferRefunded:
		p.settle(ev, payload.TransferID)
	case *events.BenefitsWithdrawn:
		if _, underflow := p.benefits.SubOverflow(p.benefits, cloneAmount(payload.Amount)); underflow {
			logx.Error("VIEWSYNC", fmt.Sprintf("Benefits underflow at %s, resetting to zero", ev))
			p.benefits.Clear()
		}
	case *events.Paused:
		p.paused = true
	case *events.Unpaused:
		p.paused = false
	case *events.Killed:
		p.killed = true
	default:
		logx.Warn("VIEWSYNC", fmt.Sprintf("Ignoring event of unknown kind %q at seq %d", ev.Kind(), ev.Seq))
	}

	p.lastSeq = ev.Seq
	return true, nil
}

func (p *Projection) settle(ev *events.Event, id types.TransferID) {
	row, ok := p.rows[id]
	if !ok {
		logx.Warn("VIEWSYNC", fmt.Sprintf("%s settles unknown transfer %s", ev, id))
		return
	}
	row.Amount = new(uint256.Int)
}

func (p *Projection) Snapshot() Snapshot {
	rows := make([]Row, 0, len(p.order))
	for _, id := range p.order {
		row := *p.rows[id]
		row.Amount = cloneAmount(row.Amount)
		rows = append(rows, row)
	}
	return Snapshot{
		Rows:              rows,
		AvailableBenefits: cloneAmount(p.benefits),
		LastSeq:           p.lastSeq,
		Paused:            p.paused,
		Killed:            p.killed,
	}
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
