package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Madhesh13-byte/drowsy-detection-iot/internal/domain/driver"
)

// keyPrefix namespaces every mirror key in Redis.
const keyPrefix = "drowsy:current_state:"

// anonymousKey is used for events that carry no driver identity.
const anonymousKey = "_anonymous"

// Mirror publishes the canonical state to Redis so read-side collaborators
// (REST layer, analytics) can serve live state without touching this process.
// Every operation is best-effort; the in-memory canonical state stays the
// source of truth.
type Mirror struct {
	// client is the shared Redis connection, owned by the caller.
	client *redis.Client
}

// NewClient creates a Redis client from connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewMirror wraps an existing Redis client.
func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{
		client: client,
	}
}

// Set stores the canonical state under the driver's mirror key.
func (m *Mirror) Set(ctx context.Context, state *driver.CanonicalState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal canonical state: %w", err)
	}

	if err := m.client.Set(ctx, mirrorKey(state.DriverID), data, 0).Err(); err != nil {
		return fmt.Errorf("set canonical state: %w", err)
	}

	return nil
}

// Get reads the mirrored canonical state for a driver.
// Returns nil without error when no state is mirrored yet.
func (m *Mirror) Get(ctx context.Context, driverID string) (*driver.CanonicalState, error) {
	data, err := m.client.Get(ctx, mirrorKey(driverID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, fmt.Errorf("get canonical state: %w", err)
	}

	var state driver.CanonicalState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("unmarshal canonical state: %w", err)
	}

	return &state, nil
}

// mirrorKey builds the Redis key for a driver, using a fixed slot for
// anonymous sources.
func mirrorKey(driverID string) string {
	if driverID == "" {
		return keyPrefix + anonymousKey
	}

	return keyPrefix + driverID
}
