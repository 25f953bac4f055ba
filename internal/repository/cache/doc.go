// Package cache mirrors the canonical driver state into Redis for read-side
// collaborators.
//
// The mirror is strictly best-effort: failures are logged by callers and
// never influence ingestion or the in-memory canonical state.
package cache
