// Package syncer runs one synchronization pass between the local store and
// the remote backend.
//
// # Overview
//
// A pass has two phases. The pull phase pages through every budget and then
// every transaction the remote holds and upserts them locally as synced
// rows. The push phase reads the pending rows of each table and replays
// them against the remote: tombstones become deletes, locally minted ids
// become creates, and everything else becomes an update. Budgets are pushed
// before transactions so a budget created in this pass already carries its
// server id when its transactions are pushed.
//
// # Error Handling
//
// Remote failures never stop a pass early. A failed pull page ends the pull
// phase; a failed push row is recorded and the loop moves on. The pass
// reports every failure in its error, joined with multierr. A local store
// failure is different: it ends the pass immediately and matches
// ErrLocalStore.
//
// # Concurrency & Contexts
//
// Orchestrator.Sync serializes passes. Cancelling the context stops the
// pass between remote calls; every local write is a per-row upsert or a
// single-transaction id swap, so the store stays consistent.
package syncer
