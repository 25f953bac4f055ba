// Package hub implements the dashboard fanout broadcaster.
//
// Every subscriber owns a buffered outbound queue drained by its own write
// pump, so broadcasting is a non-blocking enqueue per subscriber: one slow
// or closed client is dropped without delaying the others.
package hub
