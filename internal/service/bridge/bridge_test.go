package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/config"
	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
)

// TestPublishSkippedWhileDisconnected covers the broker-down path: the
// publish is skipped without error and the caller is never blocked.
func TestPublishSkippedWhileDisconnected(t *testing.T) {
	t.Parallel()

	b := NewBridge(context.Background(), config.MQTTConfig{
		BrokerURL: "tcp://127.0.0.1:1",
		ClientID:  "drowsy-server-test",
		Topic:     "drowsy_detection/alerts",
	})
	defer b.Close()

	require.False(t, b.Connected())

	// Must return immediately and silently.
	b.Publish(context.Background(), driver.StateDrowsy, "driver-1")
	b.Publish(context.Background(), driver.StateNoFace, "")
}

// TestDeviceMessageShape locks down the wire format sent to the device.
func TestDeviceMessageShape(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 4, 12, 30, 0, 0, time.UTC)

	payload, err := json.Marshal(newDeviceMessage(driver.StateDrowsy, "driver-1", at))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"state":"drowsy","timestamp":"2024-05-04T12:30:00Z","driverId":"driver-1"}`,
		string(payload),
	)

	// Anonymous events omit the driver ID.
	payload, err = json.Marshal(newDeviceMessage(driver.StateNoFace, "", at))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"state":"no_face","timestamp":"2024-05-04T12:30:00Z"}`,
		string(payload),
	)
}
