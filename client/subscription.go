package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/exception"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/logx"
)

const subscriptionBuffer = 256

type wsSubscription struct {
	conn   *websocket.Conn
	events chan *events.Event
	errs   chan error
	once   sync.Once
	done   chan struct{}
}

// Subscribe opens the node's live event feed. Events published before the
// call are not replayed; fetch them with Range.
func (c *RemitClient) Subscribe(ctx context.Context) (events.Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.wsURL, err)
	}
	sub := &wsSubscription{
		conn:   conn,
		events: make(chan *events.Event, subscriptionBuffer),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	exception.SafeGo("client.wsRead", sub.readLoop)
	exception.SafeGo("client.wsWatch", func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	})
	return sub, nil
}

func (s *wsSubscription) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.errs <- fmt.Errorf("event feed: %w", err)
			}
			return
		}
		var ev events.Event
		if err := jsonx.Unmarshal(data, &ev); err != nil {
			logx.Warn("CLIENT", "Dropping undecodable event: ", err)
			continue
		}
		select {
		case s.events <- &ev:
		case <-s.done:
			return
		default:
			logx.Warn("CLIENT", fmt.Sprintf("Subscriber buffer full, event dropped | event=%s", &ev))
		}
	}
}

func (s *wsSubscription) Events() <-chan *events.Event {
	return s.events
}

func (s *wsSubscription) Err() <-chan error {
	return s.errs
}

func (s *wsSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
