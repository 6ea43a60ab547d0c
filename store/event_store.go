package store

import (
	"encoding/binary"
	"fmt"

	"github.com/mezonai/remit/db"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/jsonx"
)

// EventStore is the append-only event log.
// Keys:
// - PrefixEvent + <8-byte big-endian seq> => JSON encoded event
type EventStore interface {
	AppendBatch(batch db.DatabaseBatch, event *events.Event) error
	Get(seq uint64) (*events.Event, error)
	// Range returns events with from <= seq <= to in ascending order
	Range(from, to uint64) ([]*events.Event, error)
}

type GenericEventStore struct {
	provider db.DatabaseProvider
}

func NewGenericEventStore(provider db.DatabaseProvider) (*GenericEventStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericEventStore{provider: provider}, nil
}

func (s *GenericEventStore) seqToKey(seq uint64) []byte {
	key := make([]byte, len(PrefixEvent)+8)
	copy(key, PrefixEvent)
	binary.BigEndian.PutUint64(key[len(PrefixEvent):], seq)
	return key
}

func (s *GenericEventStore) AppendBatch(batch db.DatabaseBatch, event *events.Event) error {
	if event.Seq == 0 {
		return fmt.Errorf("event sequence starts at 1")
	}
	value, err := jsonx.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %d: %w", event.Seq, err)
	}
	batch.Put(s.seqToKey(event.Seq), value)
	return nil
}

func (s *GenericEventStore) Get(seq uint64) (*events.Event, error) {
	value, err := s.provider.Get(s.seqToKey(seq))
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", seq, err)
	}
	if value == nil {
		return nil, nil
	}
	var ev events.Event
	if err := jsonx.Unmarshal(value, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event %d: %w", seq, err)
	}
	return &ev, nil
}

// Range reads event by event so it works on providers whose prefix
// iteration is unordered. A hole in the log is reported as an error.
func (s *GenericEventStore) Range(from, to uint64) ([]*events.Event, error) {
	if from == 0 {
		from = 1
	}
	if to < from {
		return nil, nil
	}
	out := make([]*events.Event, 0, to-from+1)
	for seq := from; seq <= to; seq++ {
		ev, err := s.Get(seq)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, fmt.Errorf("event %d missing from log", seq)
		}
		out = append(out, ev)
	}
	return out, nil
}
