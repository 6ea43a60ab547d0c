package events

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/types"
)

// Kind is an enum-like string type for ledger events
type Kind string

const (
	KindTransferCreated   Kind = "TransferCreated"
	KindTransferWithdrawn Kind = "TransferWithdrawn"
	KindTransferRefunded  Kind = "TransferRefunded"
	KindBenefitsWithdrawn Kind = "BenefitsWithdrawn"
	KindPaused            Kind = "Paused"
	KindUnpaused          Kind = "Unpaused"
	KindKilled            Kind = "Killed"
)

// Payload is the closed set of event bodies. Unknown carries kinds this
// build does not recognize so readers can skip them without failing.
type Payload interface {
	Kind() Kind
	isPayload()
}

type TransferCreated struct {
	TransferID     types.TransferID `json:"transfer_id"`
	Commitment     types.Hash       `json:"commitment"`
	Sender         types.Address    `json:"sender"`
	Claimant       types.Address    `json:"claimant,omitempty"`
	Amount         *uint256.Int     `json:"amount"`
	ExpirationTime time.Time        `json:"expiration_time"`
}

// TransferWithdrawn reports a claimant payout. Amount is what left custody
// toward the claimant, CollectedFee what was retained as benefits.
type TransferWithdrawn struct {
	TransferID   types.TransferID `json:"transfer_id"`
	Commitment   types.Hash       `json:"commitment"`
	Sender       types.Address    `json:"sender"`
	Claimant     types.Address    `json:"claimant"`
	Amount       *uint256.Int     `json:"amount"`
	CollectedFee *uint256.Int     `json:"collected_fee"`
}

type TransferRefunded struct {
	TransferID types.TransferID `json:"transfer_id"`
	Commitment types.Hash       `json:"commitment"`
	Sender     types.Address    `json:"sender"`
	Amount     *uint256.Int     `json:"amount"`
}

type BenefitsWithdrawn struct {
	Operator types.Address `json:"operator"`
	Amount   *uint256.Int  `json:"amount"`
}

type Paused struct {
	Account types.Address `json:"account"`
}

type Unpaused struct {
	Account types.Address `json:"account"`
}

type Killed struct {
	Account types.Address `json:"account"`
}

type Unknown struct {
	kind Kind
	Raw  jsonx.RawMessage
}

func NewUnknown(kind Kind, raw []byte) *Unknown {
	return &Unknown{kind: kind, Raw: raw}
}

func (*TransferCreated) Kind() Kind   { return KindTransferCreated }
func (*TransferWithdrawn) Kind() Kind { return KindTransferWithdrawn }
func (*TransferRefunded) Kind() Kind  { return KindTransferRefunded }
func (*BenefitsWithdrawn) Kind() Kind { return KindBenefitsWithdrawn }
func (*Paused) Kind() Kind            { return KindPaused }
func (*Unpaused) Kind() Kind          { return KindUnpaused }
func (*Killed) Kind() Kind            { return KindKilled }
func (u *Unknown) Kind() Kind         { return u.kind }

func (*TransferCreated) isPayload()   {}
func (*TransferWithdrawn) isPayload() {}
func (*TransferRefunded) isPayload()  {}
func (*BenefitsWithdrawn) isPayload() {}
func (*Paused) isPayload()            {}
func (*Unpaused) isPayload()          {}
func (*Killed) isPayload()            {}
func (*Unknown) isPayload()           {}

// Event is one entry of the append-only ledger log. Seq starts at 1 and
// increases by exactly one per accepted transition of an instance.
type Event struct {
	Seq       uint64
	Instance  types.Address
	Timestamp time.Time
	Payload   Payload
}

func New(seq uint64, instance types.Address, at time.Time, payload Payload) *Event {
	return &Event{
		Seq:       seq,
		Instance:  instance,
		Timestamp: at,
		Payload:   payload,
	}
}

func (e *Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

func (e *Event) String() string {
	return fmt.Sprintf("%s#%d", e.Kind(), e.Seq)
}

type envelope struct {
	Seq       uint64           `json:"seq"`
	Kind      Kind             `json:"kind"`
	Instance  types.Address    `json:"instance"`
	Timestamp time.Time        `json:"timestamp"`
	Data      jsonx.RawMessage `json:"data"`
}

func (e *Event) MarshalJSON() ([]byte, error) {
	env := envelope{
		Seq:       e.Seq,
		Kind:      e.Kind(),
		Instance:  e.Instance,
		Timestamp: e.Timestamp,
	}
	if u, ok := e.Payload.(*Unknown); ok {
		env.Data = u.Raw
	} else if e.Payload != nil {
		data, err := jsonx.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", env.Kind, err)
		}
		env.Data = data
	}
	return jsonx.Marshal(env)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := jsonx.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	var payload Payload
	switch env.Kind {
	case KindTransferCreated:
		payload = &TransferCreated{}
	case KindTransferWithdrawn:
		payload = &TransferWithdrawn{}
	case KindTransferRefunded:
		payload = &TransferRefunded{}
	case KindBenefitsWithdrawn:
		payload = &BenefitsWithdrawn{}
	case KindPaused:
		payload = &Paused{}
	case KindUnpaused:
		payload = &Unpaused{}
	case KindKilled:
		payload = &Killed{}
	default:
		payload = NewUnknown(env.Kind, env.Data)
	}
	if _, unknown := payload.(*Unknown); !unknown && len(env.Data) > 0 {
		if err := jsonx.Unmarshal(env.Data, payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
		}
	}

	e.Seq = env.Seq
	e.Instance = env.Instance
	e.Timestamp = env.Timestamp
	e.Payload = payload
	return nil
}
