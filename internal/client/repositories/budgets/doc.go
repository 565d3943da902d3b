// Package budgets provides the local persistence layer for budgets.
//
// # Overview
//
// Repository covers what both the sync engine and the UI-facing services
// need from the budgets table: idempotent upserts, point reads, updates and
// hard deletes, active reads that hide tombstones, the pending-sync query
// used by the push phase, and the two push write-backs: MarkSynced and
// Promote. Both compare the row with the snapshot the push started from so
// an edit made while the remote call was in flight stays pending. Promote
// swaps a locally minted id for the server-issued one and re-points the
// budget's transactions (see Dependents) in a single transaction.
//
// # Observers
//
// Watch returns a channel that receives the active rows immediately and again
// after every write made through the repository.
//
// # Concurrency
//
// Writes are serialized inside the repository. The same implementation runs
// on SQLite and PostgreSQL; queries are written with '?' placeholders and
// rebound through dbx.Dialect.
//
// Key Types
//
//   - type Repository: interface used by services and the sync engine
//   - type SQLRepository: database/sql implementation
//   - type Filter: narrows active reads
//   - type Dependents: rows re-pointed when a budget is promoted
package budgets
