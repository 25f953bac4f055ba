package bridge

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/logger"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/metrics"
)

// publishTimeout bounds how long a publish token is awaited before the
// attempt is written off as failed.
const publishTimeout = 5 * time.Second

// disconnectQuiesceMillis is how long Disconnect waits for in-flight work.
const disconnectQuiesceMillis = 250

// deviceMessage is the payload forwarded to the embedded safety device.
type deviceMessage struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	DriverID  string    `json:"driverId,omitempty"`
}

// Bridge forwards every validated event to the device-control topic.
// Publishing is best-effort: when the broker is down the publish is skipped
// and logged, never raised to the caller. Reconnection belongs to the paho
// client; the connected flag only reflects its lifecycle callbacks.
type Bridge struct {
	// ctx is the process context used by lifecycle callbacks.
	ctx context.Context
	// client is the long-lived MQTT connection.
	client mqtt.Client
	// topic receives the device messages.
	topic string
	// qos is the publish quality-of-service level.
	qos byte
	// connected tracks broker liveness via connect/lost callbacks.
	connected atomic.Bool
}

// NewBridge creates a publisher for the configured broker.
// Connect must be called before messages flow; construction never dials.
func NewBridge(ctx context.Context, cfg config.MQTTConfig) *Bridge {
	b := &Bridge{
		ctx:   logger.WithName(ctx, "bridge"),
		topic: cfg.Topic,
		qos:   cfg.QoS,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(mqtt.Client) {
			b.connected.Store(true)
			logger.InfoKV(b.ctx, "MQTT broker connected", "topic", b.topic)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.connected.Store(false)
			logger.WarnKV(b.ctx, "MQTT broker connection lost", "error", err)
		})

	b.client = mqtt.NewClient(opts)

	return b
}

// Connect starts the broker connection attempt in the background. Startup
// never blocks on the broker: until the connect callback fires, publishes
// are simply skipped.
func (b *Bridge) Connect() {
	token := b.client.Connect()

	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			logger.WarnKV(b.ctx, "MQTT broker connect failed, retrying in background", "error", token.Error())
		}
	}()
}

// Connected reports current broker liveness.
func (b *Bridge) Connected() bool {
	return b.connected.Load() && b.client.IsConnected()
}

// Publish forwards one event to the device topic. Every validated event is
// forwarded, including no_face: the device decides what to do with it.
func (b *Bridge) Publish(ctx context.Context, st driver.State, driverID string) {
	if !b.Connected() {
		metrics.BridgeSkipped.Inc()
		logger.WarnKV(ctx, "MQTT not connected, skipping device publish", "state", st.String())

		return
	}

	payload, err := json.Marshal(newDeviceMessage(st, driverID, time.Now().UTC()))
	if err != nil {
		logger.ErrorKV(ctx, "Device message not encodable", "error", err)

		return
	}

	token := b.client.Publish(b.topic, b.qos, false, payload)

	// The token is awaited off the ingestion path so a slow broker cannot
	// stall other connections.
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			logger.WarnKV(b.ctx, "Device publish failed", "error", token.Error(), "topic", b.topic)

			return
		}

		logger.DebugKV(b.ctx, "Device publish sent", "state", st.String(), "topic", b.topic)
	}()
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(disconnectQuiesceMillis)
	b.connected.Store(false)
}

// newDeviceMessage builds the wire payload for one event.
func newDeviceMessage(st driver.State, driverID string, at time.Time) deviceMessage {
	return deviceMessage{
		State:     st.String(),
		Timestamp: at,
		DriverID:  driverID,
	}
}
