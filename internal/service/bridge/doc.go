// Package bridge forwards validated driver events to the embedded safety
// device over an MQTT topic.
//
// Publishing is best-effort: a disconnected broker means the publish is
// skipped and logged. Broker liveness is tracked through the paho client's
// connect and connection-lost callbacks, and reconnection is delegated to
// the client itself.
package bridge
