package transactions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
)

// Filter narrows active reads. Zero fields do not constrain.
type Filter struct {
	BudgetID string
	Type     models.TransactionType
	Category models.Category
	// From and To bound DateTime, inclusive.
	From time.Time
	To   time.Time
}

type Repository interface {
	Upsert(ctx context.Context, r models.TransactionRecord) error
	UpsertMany(ctx context.Context, rs []models.TransactionRecord) error
	Get(ctx context.Context, id string) (models.TransactionRecord, error)
	Update(ctx context.Context, r models.TransactionRecord) error
	Delete(ctx context.Context, id string) error
	// MarkSynced stores pushed, the row as sent to the server, flagged
	// synced, but only if the row still equals seen. Otherwise the row stays
	// pending and only an attachment upload it still refers to is recorded.
	MarkSynced(ctx context.Context, seen, pushed models.TransactionRecord) (bool, error)
	// Promote replaces the pushed local row seen with promoted, the server
	// copy, in one transaction. A row edited since seen keeps its current
	// content under the new id and stays pending; a row removed since
	// becomes a pending tombstone. The stored row is returned.
	Promote(ctx context.Context, seen, promoted models.TransactionRecord) (models.TransactionRecord, error)

	// DeleteByBudget hard-deletes every row of the budget, tombstones
	// included, and returns how many were removed.
	DeleteByBudget(ctx context.Context, budgetID string) (int64, error)

	QueryActive(ctx context.Context, f Filter) ([]models.TransactionRecord, error)
	QueryPending(ctx context.Context) ([]models.TransactionRecord, error)
	Watch(ctx context.Context, f Filter) (<-chan []models.TransactionRecord, error)
}
