package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/filex"
	"go.uber.org/multierr"
)

// ErrBudgetNotSynced is the row error of a transaction whose budget has no
// server id yet.
var ErrBudgetNotSynced = errors.New("budget is not synced yet")

// push replays pending budgets and then pending transactions. Row failures
// are collected in rowErrs; err is set only for local store failures and
// cancellation.
func (o *Orchestrator) push(ctx context.Context, rep *Report) (rowErrs error, err error) {
	budgetRows, err := o.repos.Budgets.QueryPending(ctx)
	if err != nil {
		return nil, localErr("read pending budgets", err)
	}
	for _, r := range budgetRows {
		if err := ctx.Err(); err != nil {
			return rowErrs, err
		}
		if err := o.pushBudget(ctx, r, &rep.Budgets); err != nil {
			if errors.Is(err, ErrLocalStore) {
				return rowErrs, err
			}
			rep.Budgets.Failed++
			rowErrs = multierr.Append(rowErrs, err)
			o.log.Warn(ctx, "budget push failed", "id", r.ID, "error", err)
		}
	}

	txRows, err := o.repos.Transactions.QueryPending(ctx)
	if err != nil {
		return rowErrs, localErr("read pending transactions", err)
	}
	for _, r := range txRows {
		if err := ctx.Err(); err != nil {
			return rowErrs, err
		}
		if err := o.pushTransaction(ctx, r, &rep.Transactions); err != nil {
			if errors.Is(err, ErrLocalStore) {
				return rowErrs, err
			}
			rep.Transactions.Failed++
			rowErrs = multierr.Append(rowErrs, err)
			o.log.Warn(ctx, "transaction push failed", "id", r.ID, "error", err)
		}
	}
	return rowErrs, nil
}

func (o *Orchestrator) pushBudget(ctx context.Context, r models.BudgetRecord, c *Counts) error {
	local := models.IsLocalID(r.ID)

	if r.IsDeleted {
		if !local {
			if err := o.remote.DeleteBudget(ctx, r.ID).Err(); err != nil {
				return fmt.Errorf("delete budget %s: %w", r.ID, err)
			}
		}
		if err := o.repos.Budgets.Delete(ctx, r.ID); err != nil {
			return localErr("delete budget "+r.ID, err)
		}
		c.Deleted++
		return nil
	}

	payload, err := mapper.BudgetRecordToPayload(r)
	if err != nil {
		return fmt.Errorf("budget %s: %w", r.ID, err)
	}

	if !local {
		if err := o.remote.UpdateBudget(ctx, r.ID, payload).Err(); err != nil {
			return fmt.Errorf("update budget %s: %w", r.ID, err)
		}
		marked, err := o.repos.Budgets.MarkSynced(ctx, r)
		if err != nil {
			return localErr("mark budget synced "+r.ID, err)
		}
		if !marked {
			o.log.Debug(ctx, "budget changed during push, left pending", "id", r.ID)
		}
		c.Updated++
		return nil
	}

	w, err := o.remote.CreateBudget(ctx, payload).Get()
	if err != nil {
		return fmt.Errorf("create budget %s: %w", r.ID, err)
	}
	if w.ID == "" {
		return fmt.Errorf("create budget %s: %w: %w: no id in response", r.ID, remote.ErrTransport, remote.ErrMalformedResponse)
	}

	promoted, err := mapper.BudgetFromWire(w)
	if err != nil {
		o.log.Warn(ctx, "created budget echo is unmappable, keeping local fields", "id", w.ID, "error", err)
		promoted = r
		promoted.ID = w.ID
		promoted.SyncState = models.Synced()
	}
	stored, err := o.repos.Budgets.Promote(ctx, r, promoted)
	if err != nil {
		return localErr("promote budget "+r.ID, err)
	}
	if stored.Pending() {
		o.log.Debug(ctx, "budget changed during push, left pending", "id", stored.ID)
	}
	c.Created++
	return nil
}

func (o *Orchestrator) pushTransaction(ctx context.Context, r models.TransactionRecord, c *Counts) error {
	local := models.IsLocalID(r.ID)

	if r.IsDeleted {
		if !local {
			if err := o.remote.DeleteTransaction(ctx, r.ID).Err(); err != nil {
				return fmt.Errorf("delete transaction %s: %w", r.ID, err)
			}
		}
		if err := o.repos.Transactions.Delete(ctx, r.ID); err != nil {
			return localErr("delete transaction "+r.ID, err)
		}
		c.Deleted++
		return nil
	}

	if models.IsLocalID(r.BudgetID) {
		return fmt.Errorf("transaction %s: %w: %w: %s", r.ID, remote.ErrBusiness, ErrBudgetNotSynced, r.BudgetID)
	}

	seen := r
	if r.HasPendingAttachment() {
		url, err := o.upload(ctx, r)
		if err != nil {
			return fmt.Errorf("transaction %s: upload %s: %w", r.ID, r.LocalImagePath, err)
		}
		r.ImageURL = url
		r.LocalImagePath = ""
	}

	payload, err := mapper.TransactionRecordToPayload(r)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", r.ID, err)
	}

	if !local {
		if err := o.remote.UpdateTransaction(ctx, r.ID, payload).Err(); err != nil {
			return fmt.Errorf("update transaction %s: %w", r.ID, err)
		}
		marked, err := o.repos.Transactions.MarkSynced(ctx, seen, r)
		if err != nil {
			return localErr("mark transaction synced "+r.ID, err)
		}
		if !marked {
			o.log.Debug(ctx, "transaction changed during push, left pending", "id", r.ID)
		}
		c.Updated++
		return nil
	}

	w, err := o.remote.CreateTransaction(ctx, payload).Get()
	if err != nil {
		return fmt.Errorf("create transaction %s: %w", r.ID, err)
	}
	if w.ID == "" {
		return fmt.Errorf("create transaction %s: %w: %w: no id in response", r.ID, remote.ErrTransport, remote.ErrMalformedResponse)
	}

	promoted, err := mapper.TransactionFromWire(w)
	if err != nil {
		o.log.Warn(ctx, "created transaction echo is unmappable, keeping local fields", "id", w.ID, "error", err)
		promoted = r
		promoted.ID = w.ID
		promoted.SyncState = models.Synced()
	}
	if promoted.ImageURL == "" {
		promoted.ImageURL = r.ImageURL
	}
	stored, err := o.repos.Transactions.Promote(ctx, seen, promoted)
	if err != nil {
		return localErr("promote transaction "+r.ID, err)
	}
	if stored.Pending() {
		o.log.Debug(ctx, "transaction changed during push, left pending", "id", stored.ID)
	}
	c.Created++
	return nil
}

func (o *Orchestrator) upload(ctx context.Context, r models.TransactionRecord) (string, error) {
	if o.uploader == nil {
		return "", fmt.Errorf("%w: no attachment uploader configured", remote.ErrBusiness)
	}
	att, err := filex.ReadAttachment(r.LocalImagePath, o.opts.MaxAttachmentBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", remote.ErrBusiness, err)
	}
	return o.uploader.Upload(ctx, att)
}
