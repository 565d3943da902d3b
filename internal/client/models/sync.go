// Package models defines the budget and transaction types of the sync engine
// in two shapes: the domain model used by services and the CLI, and the
// local record persisted by the repositories together with its sync state.
package models

import (
	"strings"

	"github.com/google/uuid"
)

// localIDMarker is part of every locally minted id and of no server id.
const localIDMarker = "-"

// NewLocalID mints an identifier for a record the remote has not accepted yet.
func NewLocalID() string {
	return uuid.NewString()
}

// IsLocalID reports whether id was minted locally and never issued by the
// remote.
func IsLocalID(id string) bool {
	return strings.Contains(id, localIDMarker)
}

// SyncState is the envelope carried by every local record.
//
// IsSynced is true once the local row is known to match the remote.
// IsDeleted marks a tombstone: the row is hidden from active reads and stays
// pending until the remote acknowledges the delete.
type SyncState struct {
	IsSynced  bool
	IsDeleted bool
}

// Synced is the state of a row materialized from the remote.
func Synced() SyncState {
	return SyncState{IsSynced: true}
}

// Dirty is the state of a locally created or edited row.
func Dirty() SyncState {
	return SyncState{}
}

// Tombstone is the state of a row whose delete is pending push.
func Tombstone() SyncState {
	return SyncState{IsDeleted: true}
}

// Normalize enforces that a tombstone is never considered synced.
func (s SyncState) Normalize() SyncState {
	if s.IsDeleted {
		s.IsSynced = false
	}
	return s
}

// Pending reports whether the row must go through the next push phase.
func (s SyncState) Pending() bool {
	return !s.IsSynced || s.IsDeleted
}
