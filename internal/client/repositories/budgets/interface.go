package budgets

import (
	"context"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
)

// Filter narrows active reads. The zero value selects every active budget.
type Filter struct {
	ID   string
	Name string // case-insensitive substring
}

type Repository interface {
	// Upsert inserts or replaces a row by id.
	Upsert(ctx context.Context, r models.BudgetRecord) error
	// UpsertMany upserts rows in one transaction and notifies observers once.
	UpsertMany(ctx context.Context, rs []models.BudgetRecord) error
	// Get returns common.ErrNotFound when the id is absent.
	Get(ctx context.Context, id string) (models.BudgetRecord, error)
	// Update replaces an existing row; common.ErrNotFound when absent.
	Update(ctx context.Context, r models.BudgetRecord) error
	// Delete physically removes a row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
	// MarkSynced flags the row synced only if it still equals seen. It
	// reports false, leaving the row pending, when another write landed
	// since seen was read.
	MarkSynced(ctx context.Context, seen models.BudgetRecord) (bool, error)
	// Promote replaces the pushed local row seen with promoted, the server
	// copy, and points dependent rows at promoted.ID in one transaction.
	// A row edited since seen keeps its current content under the new id
	// and stays pending; a row removed since becomes a pending tombstone.
	// The stored row is returned.
	Promote(ctx context.Context, seen, promoted models.BudgetRecord) (models.BudgetRecord, error)

	QueryActive(ctx context.Context, f Filter) ([]models.BudgetRecord, error)
	QueryPending(ctx context.Context) ([]models.BudgetRecord, error)
	Watch(ctx context.Context, f Filter) (<-chan []models.BudgetRecord, error)
}

// Dependents are rows that reference a budget by id. Promote re-points them
// inside its own transaction and notifies their observers after commit.
type Dependents interface {
	ReassignBudgetTx(ctx context.Context, tx dbx.DBTX, oldBudgetID, newBudgetID string) (int64, error)
	Notify(ctx context.Context)
}
