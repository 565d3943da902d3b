package syncer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"go.uber.org/multierr"
)

// puller pages through one remote list and merges it into one table.
type puller[W, R any] struct {
	entity     string
	list       func(ctx context.Context, page int) remote.Result[remote.Page[W]]
	fromWire   func(W) (R, error)
	id         func(R) string
	pending    func(ctx context.Context) ([]R, error)
	upsertMany func(ctx context.Context, rs []R) error
}

// pull runs the budget puller and then the transaction puller. The first
// error stops the phase. Records that fail to map are skipped and returned
// as rowErrs.
func (o *Orchestrator) pull(ctx context.Context, rep *Report) (rowErrs error, err error) {
	bp := puller[remote.Budget, models.BudgetRecord]{
		entity:     "budgets",
		list:       o.remote.ListBudgets,
		fromWire:   mapper.BudgetFromWire,
		id:         func(r models.BudgetRecord) string { return r.ID },
		pending:    o.repos.Budgets.QueryPending,
		upsertMany: o.repos.Budgets.UpsertMany,
	}
	rowErrs, err = runPull(ctx, o, bp, &rep.Budgets)
	if err != nil {
		return rowErrs, err
	}

	tp := puller[remote.Transaction, models.TransactionRecord]{
		entity:     "transactions",
		list:       o.remote.ListTransactions,
		fromWire:   mapper.TransactionFromWire,
		id:         func(r models.TransactionRecord) string { return r.ID },
		pending:    o.repos.Transactions.QueryPending,
		upsertMany: o.repos.Transactions.UpsertMany,
	}
	txErrs, err := runPull(ctx, o, tp, &rep.Transactions)
	return multierr.Append(rowErrs, txErrs), err
}

func runPull[W, R any](ctx context.Context, o *Orchestrator, p puller[W, R], c *Counts) (rowErrs error, err error) {
	keep := map[string]bool{}
	if o.opts.PullPolicy == SkipPending {
		rows, err := p.pending(ctx)
		if err != nil {
			return nil, localErr("read pending "+p.entity, err)
		}
		for _, r := range rows {
			keep[p.id(r)] = true
		}
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return rowErrs, err
		}

		res, err := p.list(ctx, page).Get()
		if err != nil {
			return rowErrs, fmt.Errorf("pull %s page %d: %w", p.entity, page, err)
		}

		recs := make([]R, 0, len(res.Items))
		for _, w := range res.Items {
			r, err := p.fromWire(w)
			if err != nil {
				c.Failed++
				rowErrs = multierr.Append(rowErrs, fmt.Errorf("pull %s: %w", p.entity, err))
				o.log.Warn(ctx, "skipping unmappable record", "entity", p.entity, "page", page, "error", err)
				continue
			}
			if keep[p.id(r)] {
				c.Kept++
				continue
			}
			recs = append(recs, r)
		}

		if len(recs) > 0 {
			if err := p.upsertMany(ctx, recs); err != nil {
				return rowErrs, localErr("merge "+p.entity, err)
			}
		}
		c.Pulled += len(recs)
		o.log.Debug(ctx, "pulled page", "entity", p.entity, "page", page,
			"last_page", res.Pagination.LastPage, "records", len(recs))

		if page >= res.Pagination.LastPage {
			return rowErrs, nil
		}
	}
}
