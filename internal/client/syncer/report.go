package syncer

import "time"

// Counts tallies one entity type over a pass.
type Counts struct {
	Pulled int

	// Kept counts pulled records left alone under SkipPending.
	Kept int

	Created int
	Updated int
	Deleted int
	Failed  int
}

// Report summarizes a pass. It is returned even when the pass fails.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Budgets      Counts
	Transactions Counts

	PullFailed  bool
	PushSkipped bool
	Err         error
}

// OK reports whether the pull phase succeeded and no row failed.
func (r *Report) OK() bool {
	return r.Err == nil
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) Failed() int {
	return r.Budgets.Failed + r.Transactions.Failed
}

// logArgs flattens the report for structured logging.
func (r *Report) logArgs() []any {
	return []any{
		"duration", r.Duration(),
		"budgets_pulled", r.Budgets.Pulled,
		"budgets_created", r.Budgets.Created,
		"budgets_updated", r.Budgets.Updated,
		"budgets_deleted", r.Budgets.Deleted,
		"transactions_pulled", r.Transactions.Pulled,
		"transactions_created", r.Transactions.Created,
		"transactions_updated", r.Transactions.Updated,
		"transactions_deleted", r.Transactions.Deleted,
		"failed", r.Failed(),
		"pull_failed", r.PullFailed,
	}
}
