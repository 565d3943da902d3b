package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the domain view of a budget.
type Budget struct {
	ID        string
	UserID    string
	Name      string
	Limit     decimal.Decimal
	Period    BudgetPeriod
	StartDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BudgetDetails is a budget together with figures computed from its
// non-deleted local transactions.
type BudgetDetails struct {
	Budget
	TotalIncome  decimal.Decimal
	TotalOutcome decimal.Decimal
	Remaining    decimal.Decimal
	// Progress is TotalOutcome / Limit, zero when the limit is zero.
	Progress         decimal.Decimal
	TransactionCount int
}

// BudgetRecord is a budget row as persisted by the local store.
// Money is kept as decimal text and times as normalized UTC text.
type BudgetRecord struct {
	ID        string
	UserID    string
	Name      string
	Limit     string
	Period    string
	StartDate string
	CreatedAt string
	UpdatedAt string
	SyncState
}

// Same reports whether both records hold the same content and sync flags.
func (r BudgetRecord) Same(o BudgetRecord) bool {
	return r == o
}
