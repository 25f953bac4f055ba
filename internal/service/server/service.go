package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/metrics"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/bridge"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/hub"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/monitor"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/service/state"
)

// readWait is how long a connection may stay silent before its read loop
// gives up; pong replies to keepalive pings reset it.
const readWait = 60 * time.Second

// inboundEvent is the raw payload accepted from perception clients.
type inboundEvent struct {
	State      string   `json:"state"`
	Confidence *float64 `json:"confidence,omitempty"`
	DriverID   string   `json:"driverId,omitempty"`
}

// service drives the event pipeline: validate, update canonical state,
// evaluate escalation, forward to the device bridge and fan out to
// dashboards. It is unexported to keep the transport decoupled from the
// implementation.
type service struct {
	// states owns the canonical per-driver state.
	states *state.Manager
	// episodes is the escalation state machine.
	episodes *monitor.Monitor
	// devices forwards events to the embedded device,
	// nil when the bridge is not configured.
	devices *bridge.Bridge
	// fanout pushes snapshots to dashboard subscribers.
	fanout *hub.Hub
	// upgrader accepts WebSocket connections from any origin:
	// the ingestion channel is deliberately unauthenticated.
	upgrader websocket.Upgrader
}

// newService wires the event pipeline.
func newService(states *state.Manager, episodes *monitor.Monitor, devices *bridge.Bridge, fanout *hub.Hub) *service {
	return &service{
		states:   states,
		episodes: episodes,
		devices:  devices,
		fanout:   fanout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// handleWS upgrades a connection and serves it until it closes. Perception
// clients and dashboard subscribers share the channel: every connection
// joins the fanout set and may also report events.
func (s *service) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithName(r.Context(), "ingress")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "WebSocket upgrade failed", "error", err)

		return
	}

	sub := s.fanout.Register(conn)

	// New subscribers immediately receive the current snapshot so they
	// never render a stale default until the next event arrives.
	s.fanout.Send(sub, s.states.Latest())

	s.readPump(ctx, sub)
}

// readPump applies inbound messages in arrival order for one connection.
// It returns when the connection closes; downstream failures never close
// the connection from our side.
func (s *service) readPump(ctx context.Context, sub *hub.Subscriber) {
	conn := sub.Conn()

	defer func() {
		s.fanout.Unregister(sub)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnKV(ctx, "Connection read failed", "error", err, "subscriber_id", sub.ID())
			}

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		s.processMessage(ctx, raw)
	}
}

// processMessage validates one inbound payload and drives the pipeline.
// Invalid payloads are dropped with a warning; the connection survives.
func (s *service) processMessage(ctx context.Context, raw []byte) {
	ev, ok := s.validate(ctx, raw)
	if !ok {
		metrics.EventsDropped.Inc()

		return
	}

	metrics.EventsReceived.WithLabelValues(ev.State.String()).Inc()

	canonical := s.states.Update(ctx, ev)

	s.episodes.Observe(ctx, ev)

	if s.devices != nil {
		s.devices.Publish(ctx, ev.State, ev.DriverID)
	}

	s.fanout.Broadcast(canonical)
}

// validate parses and checks one inbound payload.
func (s *service) validate(ctx context.Context, raw []byte) (*driver.Event, bool) {
	var payload inboundEvent
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.WarnKV(ctx, "Invalid message format, dropping", "error", err)

		return nil, false
	}

	st, err := driver.ParseState(payload.State)
	if err != nil {
		logger.WarnKV(ctx, "Unrecognized state, dropping", "error", err)

		return nil, false
	}

	if payload.Confidence != nil && (*payload.Confidence < 0 || *payload.Confidence > 1) {
		logger.WarnKV(ctx, "Confidence out of range, dropping", "confidence", *payload.Confidence)

		return nil, false
	}

	return &driver.Event{
		State:      st,
		Confidence: payload.Confidence,
		DriverID:   payload.DriverID,
	}, true
}
