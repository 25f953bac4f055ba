// Package driver contains core domain types for the drowsiness monitoring
// business logic.
//
// It defines the State enumeration reported by the perception service, the
// validated inbound Event, the durable StatusRecord and AlertRecord forms,
// and the CanonicalState served to dashboard readers.
package driver
