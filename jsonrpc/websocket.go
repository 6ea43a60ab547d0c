package jsonrpc

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mezonai/remit/events"
	"github.com/mezonai/remit/exception"
	"github.com/mezonai/remit/jsonx"
	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsHub tracks open event feeds so Shutdown can close them
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	monitoring.SetWSClients(n)
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	monitoring.SetWSClients(n)
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		_ = c.Close()
	}
}

// handleEventsWS streams every event published after the handshake, one
// JSON text frame per event. The bus subscription exists before the
// handshake completes, so a client that reads the head after connecting
// misses nothing in between. Anything older comes from events.range.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	sub := events.SubscribeBusContext(r.Context(), s.ledger.Bus())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Unsubscribe()
		logx.Warn("WS", "WebSocket upgrade failed: ", err)
		return
	}
	s.ws.add(conn)

	clientIP := extractClientIPFromRequest(r)
	logx.Info("WS", fmt.Sprintf("Event feed opened | client=%s", clientIP))

	closed := make(chan struct{})
	exception.SafeGo("jsonrpc.wsRead", func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Unsubscribe()
		s.ws.remove(conn)
		_ = conn.Close()
		logx.Info("WS", fmt.Sprintf("Event feed closed | client=%s", clientIP))
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"), time.Now().Add(wsWriteWait))
				return
			}
			data, err := jsonx.Marshal(ev)
			if err != nil {
				logx.Error("WS", fmt.Sprintf("Encode %s: %v", ev, err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
