package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings with this period. Must be less than pongWait.
	maxMessageSize = 16384               // Maximum frame size allowed from peer (call signals carry SDP blobs).
	sendBufferSize = 256
)

// Session is one authenticated websocket connection. The identity is bound at
// upgrade time and immutable for the connection's lifetime; inbound frames are
// always attributed to it, never to client-supplied fields.
type Session struct {
	ID     string
	UserID int64
	Email  string

	conn *websocket.Conn
	send chan []byte
	gate *Gate

	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// enqueue offers data to the session's outbound buffer without blocking.
// Returns false when the buffer is full (slow consumer) or the session is
// already closed. The mutex pairs with closeSend: a dispatcher that snapshotted
// this session before teardown must never send on the closed channel.
func (s *Session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound buffer. Must only run after the session is
// unregistered; the mutex excludes any in-flight enqueue.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	close(s.send)
}

// readPump pumps frames from the websocket to the gate. It owns the teardown:
// whatever kills the read loop, cleanup runs exactly once.
func (s *Session) readPump() {
	defer func() {
		s.closeOnce.Do(func() { s.gate.teardown(s) })
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.gate.logger.Debug().Err(err).
					Str("session_id", s.ID).
					Int64("user_id", s.UserID).
					Msg("websocket read error")
			}
			break
		}
		s.gate.handleFrame(s, data)
	}
}

// writePump pumps buffered events to the websocket connection and keeps the
// connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Drain whatever is already queued into the same writer to save
			// syscalls.
			n := len(s.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-s.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
