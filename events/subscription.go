package events

import (
	"context"
	"sync"
)

// Subscription is a live, ordered feed of ledger events. Events may be
// dropped under back-pressure but never reordered; Err delivers at most one
// terminal error. Unsubscribe releases the feed and is safe to call twice.
type Subscription interface {
	Events() <-chan *Event
	Err() <-chan error
	Unsubscribe()
}

type busSubscription struct {
	bus  *EventBus
	id   SubscriberID
	ch   chan *Event
	errs chan error
	done chan struct{}
	once sync.Once
}

// SubscribeBus wraps an EventBus subscription in the Subscription contract.
func SubscribeBus(bus *EventBus) Subscription {
	id, ch := bus.Subscribe()
	return &busSubscription{
		bus:  bus,
		id:   id,
		ch:   ch,
		errs: make(chan error),
		done: make(chan struct{}),
	}
}

// SubscribeBusContext is SubscribeBus that also unsubscribes when ctx ends.
func SubscribeBusContext(ctx context.Context, bus *EventBus) Subscription {
	sub := SubscribeBus(bus).(*busSubscription)
	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub
}

func (s *busSubscription) Events() <-chan *Event {
	return s.ch
}

func (s *busSubscription) Err() <-chan error {
	return s.errs
}

func (s *busSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.bus.Unsubscribe(s.id)
	})
}
