package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/metrics"
)

// Hub maintains the live set of dashboard subscribers and fans canonical
// state snapshots out to them. Failures are isolated per subscriber: a
// closed or slow client is dropped without affecting delivery to the rest,
// and Broadcast never returns an error.
type Hub struct {
	// ctx is the process context used for logging.
	ctx context.Context
	// subscribers is the registry of open connections.
	subscribers map[string]*Subscriber
	// mu protects subscribers.
	mu sync.RWMutex
}

// NewHub creates an empty fanout registry.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		ctx:         logger.WithName(ctx, "hub"),
		subscribers: make(map[string]*Subscriber),
	}
}

// Register adds an accepted connection to the fanout set and starts its
// write pump.
func (h *Hub) Register(conn *websocket.Conn) *Subscriber {
	sub := newSubscriber(conn)

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(count))

	go sub.writePump()

	logger.InfoKV(h.ctx, "Client connected", "subscriber_id", sub.id, "total_clients", count)

	return sub
}

// Unregister removes a subscriber and closes its outbound queue.
// Unregistering an already-removed subscriber is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()

	if _, ok := h.subscribers[sub.id]; !ok {
		h.mu.Unlock()

		return
	}

	delete(h.subscribers, sub.id)
	count := len(h.subscribers)

	h.mu.Unlock()

	sub.close()
	metrics.Subscribers.Set(float64(count))

	logger.InfoKV(h.ctx, "Client disconnected", "subscriber_id", sub.id, "total_clients", count)
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

// Send delivers a payload to a single subscriber, dropping it when the
// subscriber cannot keep up.
func (h *Hub) Send(sub *Subscriber, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorKV(h.ctx, "Payload not encodable", "error", err)

		return
	}

	if !sub.enqueue(data) {
		logger.WarnKV(h.ctx, "Subscriber too slow, dropping", "subscriber_id", sub.id)
		h.Unregister(sub)
	}
}

// Broadcast serializes the payload once and delivers it independently to
// every subscriber whose channel is open. A full or closed subscriber is
// dropped; the others still receive the payload.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorKV(h.ctx, "Payload not encodable", "error", err)

		return
	}

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	var dropped []*Subscriber

	for _, sub := range subs {
		if !sub.enqueue(data) {
			dropped = append(dropped, sub)
		}
	}

	for _, sub := range dropped {
		logger.WarnKV(h.ctx, "Subscriber too slow, dropping", "subscriber_id", sub.id)
		h.Unregister(sub)
	}

	logger.DebugKV(h.ctx, "Broadcast delivered", "clients", len(subs)-len(dropped))
}

// CloseAll disconnects every subscriber, typically during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}

	metrics.Subscribers.Set(0)
}
