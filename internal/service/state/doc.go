// Package state implements the canonical-state manager.
//
// Updates are synchronous against the in-memory per-driver cache and
// best-effort against the record store and the Redis mirror: durability and
// current-state readability are deliberately decoupled. Reads prefer durable
// truth and degrade to the cached value when the store is unreachable.
package state
