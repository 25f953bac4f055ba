package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to a subscriber socket.
	writeWait = 10 * time.Second
	// pingPeriod is the keepalive interval; it must stay below the read
	// deadline the ingress listener grants for pong replies.
	pingPeriod = 54 * time.Second
	// sendBufferSize is the per-subscriber outbound queue length.
	sendBufferSize = 256
)

// Subscriber is one connected dashboard client. Writes go through a buffered
// channel drained by its own write pump, so one slow client never blocks the
// broadcast path.
type Subscriber struct {
	// id identifies the subscriber in logs and the registry.
	id string
	// conn is the underlying WebSocket connection.
	conn *websocket.Conn
	// send queues outbound payloads for the write pump. It is never
	// closed; quit ends the pump instead, so a concurrent enqueue can
	// never hit a closed channel.
	send chan []byte
	// quit stops the write pump and rejects further enqueues.
	quit chan struct{}
	// closeOnce guards quit against double close.
	closeOnce sync.Once
}

// newSubscriber wraps an accepted connection.
func newSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		quit: make(chan struct{}),
	}
}

// ID returns the subscriber's registry identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Conn exposes the underlying connection for the ingress read loop.
func (s *Subscriber) Conn() *websocket.Conn {
	return s.conn
}

// enqueue offers a payload to the subscriber without blocking.
// It reports false when the subscriber is closed or its buffer is full,
// which marks it as too slow to keep.
func (s *Subscriber) enqueue(payload []byte) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump exactly once.
func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. It exits on the first write error or when the
// subscriber is closed; the deferred close tears the connection down either
// way.
func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-s.quit:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})

			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
