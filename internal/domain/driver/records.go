package driver

import (
	"fmt"
	"time"
)

// AlertStatus is the fixed status value recorded for every fired alert.
const AlertStatus = "alert_sent"

// Event is a validated classification sample received from a perception client.
type Event struct {
	// State is the reported driver condition.
	State State
	// Confidence is the model confidence in [0,1], if reported.
	Confidence *float64
	// DriverID identifies the driver, if the perception client knows it.
	DriverID string
}

// StatusRecord is one durable entry of the driver status history.
// Records are immutable once written.
type StatusRecord struct {
	// ID is the store-assigned record identifier.
	ID string
	// DriverID identifies the driver the sample belongs to, if known.
	DriverID string
	// State is the persisted driver condition (never no_face).
	State State
	// Confidence is the model confidence in [0,1], if reported.
	Confidence *float64
	// Timestamp is when the sample was accepted.
	Timestamp time.Time
}

// AlertRecord is the durable audit entry for one fired escalation episode.
// Exactly one record is written per episode, regardless of delivery outcome.
type AlertRecord struct {
	// ID is the store-assigned record identifier.
	ID string
	// DriverID identifies the driver the alert concerns.
	DriverID string
	// DriverName is the display name resolved at firing time.
	DriverName string
	// Status is always AlertStatus.
	Status string
	// AlertType names the escalation rule, e.g. "drowsiness_15s".
	AlertType string
	// Timestamp is when the alert fired.
	Timestamp time.Time
}

// AlertType renders the escalation rule name for the given dwell duration.
func AlertType(dwell time.Duration) string {
	return fmt.Sprintf("drowsiness_%ds", int(dwell.Seconds()))
}

// CanonicalState is the latest-known driver condition served to readers.
// It is superseded in place on every accepted event and never deleted.
type CanonicalState struct {
	// DriverID identifies the driver, empty for anonymous sources.
	DriverID string `json:"driverId,omitempty"`
	// State is the latest accepted driver condition.
	State State `json:"state"`
	// LastUpdated is when the state last changed.
	LastUpdated time.Time `json:"lastUpdated"`
}

// Clone returns a copy of the canonical state to avoid leaking internal references.
func (c *CanonicalState) Clone() *CanonicalState {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}
