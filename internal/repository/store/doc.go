// Package store defines durable persistence for driver status snapshots and
// alert audit records.
//
// Repository is the interface consumed by the services; PostgresRepository
// implements it over database/sql with the lib/pq driver. Records are
// append-only and every query returns newest-first ordering.
package store
