package ledger

import (
	"context"

	"github.com/mezonai/remit/events"
)

// Head is the sequence number of the latest event, 0 before the first one
func (l *Ledger) Head(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Head, nil
}

// Range returns the persisted events with from <= seq <= to. to is clamped
// to the current head.
func (l *Ledger) Range(ctx context.Context, from, to uint64) ([]*events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	head := l.state.Head
	l.mu.Unlock()

	if to > head {
		to = head
	}
	return l.events.Range(from, to)
}

// Subscribe returns a feed of events published after the call. It ends when
// ctx does or when the subscriber unsubscribes.
func (l *Ledger) Subscribe(ctx context.Context) (events.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return events.SubscribeBusContext(ctx, l.bus), nil
}
