package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/remit/logx"
)

const DefaultSubscriberBuffer = 256

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan *Event
}

// EventBus fans ledger events out to live subscribers. Delivery is best
// effort: a subscriber whose buffer is full misses the event and is expected
// to notice the sequence gap and re-read the log.
type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	bufferSize  int
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return NewEventBusWithBuffer(DefaultSubscriberBuffer)
}

func NewEventBusWithBuffer(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
		bufferSize:  bufferSize,
	}
}

func (eb *EventBus) generateUUIDID() SubscriberID {
	id := uuid.Must(uuid.NewV7())
	return SubscriberID(id.String())
}

func (eb *EventBus) Subscribe() (SubscriberID, chan *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.generateUUIDID()
	ch := make(chan *Event, eb.bufferSize)
	eb.subscribers[id] = &Subscriber{
		ID:      id,
		Channel: ch,
	}

	logx.Info("EVENTBUS", fmt.Sprintf("Client subscribed to ledger events | subscriber_id=%s | total_subscribers=%d", id, len(eb.subscribers)))

	return id, ch
}

// Unsubscribe removes a subscription by ID and closes its channel
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("EVENTBUS", fmt.Sprintf("Attempted to unsubscribe non-existent subscriber | subscriber_id=%s", id))
		return false
	}

	delete(eb.subscribers, id)
	close(subscriber.Channel)

	logx.Info("EVENTBUS", fmt.Sprintf("Client unsubscribed from events | subscriber_id=%s | remaining_subscribers=%d", id, len(eb.subscribers)))
	return true
}

// Publish publishes an event to all subscribers without blocking the caller
func (eb *EventBus) Publish(event *Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subscribers) == 0 {
		logx.Debug("EVENTBUS", fmt.Sprintf("No subscribers for event | event=%s", event))
		return
	}

	for id, subscriber := range eb.subscribers {
		select {
		case subscriber.Channel <- event:
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full, event dropped | subscriber_id=%s | event=%s", id, event))
		}
	}
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers)
}

// HasSubscriber checks if a subscriber with the given ID exists
func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	_, exists := eb.subscribers[id]
	return exists
}
