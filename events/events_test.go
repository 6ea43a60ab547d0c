package events

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withdrawnEvent(seq uint64) *Event {
	return New(seq, "instance", time.Unix(1_700_000_000, 0).UTC(), &TransferWithdrawn{
		TransferID:   "1",
		Sender:       "alice",
		Claimant:     "carol",
		Amount:       uint256.NewInt(990),
		CollectedFee: uint256.NewInt(10),
	})
}

func TestEventBus(t *testing.T) {
	eventBus := NewEventBus()

	id, eventChan := eventBus.Subscribe()
	assert.Equal(t, 1, eventBus.GetTotalSubscriptions())
	assert.True(t, eventBus.HasSubscriber(id))

	event := withdrawnEvent(1)
	go eventBus.Publish(event)

	select {
	case received := <-eventChan:
		assert.Equal(t, KindTransferWithdrawn, received.Kind())
		assert.Equal(t, uint64(1), received.Seq)
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	assert.True(t, eventBus.Unsubscribe(id))
	assert.False(t, eventBus.Unsubscribe(id))
	assert.Equal(t, 0, eventBus.GetTotalSubscriptions())

	_, open := <-eventChan
	assert.False(t, open, "channel must be closed on unsubscribe")
}

func TestMultipleSubscribers(t *testing.T) {
	eventBus := NewEventBus()
	sub1 := SubscribeBus(eventBus)
	sub2 := SubscribeBus(eventBus)
	require.Equal(t, 2, eventBus.GetTotalSubscriptions())

	eventBus.Publish(withdrawnEvent(7))

	for _, sub := range []Subscription{sub1, sub2} {
		select {
		case received := <-sub.Events():
			assert.Equal(t, uint64(7), received.Seq)
		case <-time.After(1 * time.Second):
			t.Fatal("Timeout waiting for event")
		}
	}

	sub1.Unsubscribe()
	sub1.Unsubscribe()
	sub2.Unsubscribe()
	assert.Equal(t, 0, eventBus.GetTotalSubscriptions())
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	eventBus := NewEventBusWithBuffer(1)
	id, ch := eventBus.Subscribe()
	defer eventBus.Unsubscribe(id)

	eventBus.Publish(withdrawnEvent(1))
	eventBus.Publish(withdrawnEvent(2))

	first := <-ch
	assert.Equal(t, uint64(1), first.Seq)
	select {
	case extra := <-ch:
		t.Fatalf("expected event 2 to be dropped, got %s", extra)
	default:
	}
}

func TestEventJSONPreservesPayload(t *testing.T) {
	original := withdrawnEvent(3)

	data, err := jsonx.Marshal(original)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, jsonx.Unmarshal(data, &decoded))

	assert.Equal(t, uint64(3), decoded.Seq)
	assert.Equal(t, types.Address("instance"), decoded.Instance)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	payload, ok := decoded.Payload.(*TransferWithdrawn)
	require.True(t, ok, "payload type %T", decoded.Payload)
	assert.Equal(t, "990", payload.Amount.Dec())
	assert.Equal(t, "10", payload.CollectedFee.Dec())
	assert.Equal(t, types.Address("carol"), payload.Claimant)
}

func TestUnknownKindIsKeptRaw(t *testing.T) {
	raw := []byte(`{"seq":9,"kind":"TransferDisputed","instance":"i","timestamp":"2024-01-01T00:00:00Z","data":{"transfer_id":"4"}}`)

	var decoded Event
	require.NoError(t, jsonx.Unmarshal(raw, &decoded))

	assert.Equal(t, Kind("TransferDisputed"), decoded.Kind())
	unknown, ok := decoded.Payload.(*Unknown)
	require.True(t, ok)
	assert.JSONEq(t, `{"transfer_id":"4"}`, string(unknown.Raw))

	again, err := jsonx.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}
