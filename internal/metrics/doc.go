// Package metrics exposes Prometheus collectors for the server's event flow:
// accepted and dropped events, fired alerts, skipped bridge publishes,
// subscriber count and store degradation.
//
// Collectors are registered on the default registry and served on /metrics.
package metrics
