package budgets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/watch"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
)

const columns = `id, user_id, name, limit_amount, period, start_date, created_at, updated_at, is_synced, is_deleted`

const upsertQuery = `
	INSERT INTO budgets (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		name = excluded.name,
		limit_amount = excluded.limit_amount,
		period = excluded.period,
		start_date = excluded.start_date,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted`

const getQuery = `SELECT ` + columns + ` FROM budgets WHERE id = ?`

type SQLRepository struct {
	db         *sql.DB
	dialect    dbx.Dialect
	hub        *watch.Hub[[]models.BudgetRecord]
	dependents Dependents

	mu sync.Mutex
}

var _ Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *sql.DB, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, hub: watch.NewHub[[]models.BudgetRecord]()}
}

// WithDependents sets the table re-pointed by Promote.
func (r *SQLRepository) WithDependents(d Dependents) *SQLRepository {
	r.dependents = d
	return r
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

// write serializes fn with other writers and refreshes observers on success.
func (r *SQLRepository) write(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	err := fn()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	// a failed reload leaves observers on their previous snapshot
	_ = r.hub.Notify(context.WithoutCancel(ctx))
	return nil
}

func args(b models.BudgetRecord) []any {
	s := b.SyncState.Normalize()
	return []any{b.ID, b.UserID, b.Name, b.Limit, b.Period, b.StartDate, b.CreatedAt, b.UpdatedAt,
		dbx.Bool(s.IsSynced), dbx.Bool(s.IsDeleted)}
}

func upsert(ctx context.Context, db dbx.DBTX, query string, b models.BudgetRecord) error {
	if b.ID == "" {
		return fmt.Errorf("failed to upsert budget: %w: empty id", common.ErrValidation)
	}
	if _, err := db.ExecContext(ctx, query, args(b)...); err != nil {
		return fmt.Errorf("failed to upsert budget %s: %w", b.ID, err)
	}
	return nil
}

func (r *SQLRepository) Upsert(ctx context.Context, b models.BudgetRecord) error {
	return r.write(ctx, func() error {
		return upsert(ctx, r.db, r.q(upsertQuery), b)
	})
}

func (r *SQLRepository) UpsertMany(ctx context.Context, rs []models.BudgetRecord) error {
	if len(rs) == 0 {
		return nil
	}
	return r.write(ctx, func() error {
		return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			for _, b := range rs {
				if err := upsert(ctx, tx, r.q(upsertQuery), b); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (models.BudgetRecord, error) {
	var (
		b                 models.BudgetRecord
		synced, isDeleted int64
	)
	err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.Limit, &b.Period, &b.StartDate, &b.CreatedAt, &b.UpdatedAt, &synced, &isDeleted)
	b.IsSynced = synced != 0
	b.IsDeleted = isDeleted != 0
	return b, err
}

func (r *SQLRepository) Get(ctx context.Context, id string) (models.BudgetRecord, error) {
	return r.get(ctx, r.db, id)
}

func (r *SQLRepository) get(ctx context.Context, db dbx.DBTX, id string) (models.BudgetRecord, error) {
	b, err := scan(db.QueryRowContext(ctx, r.q(getQuery), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.BudgetRecord{}, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return models.BudgetRecord{}, fmt.Errorf("failed to get budget %s: %w", id, err)
	}
	return b, nil
}

func (r *SQLRepository) Update(ctx context.Context, b models.BudgetRecord) error {
	return r.write(ctx, func() error {
		s := b.SyncState.Normalize()
		res, err := r.db.ExecContext(ctx, r.q(`
			UPDATE budgets SET
				user_id = ?, name = ?, limit_amount = ?, period = ?, start_date = ?,
				created_at = ?, updated_at = ?, is_synced = ?, is_deleted = ?
			WHERE id = ?`),
			b.UserID, b.Name, b.Limit, b.Period, b.StartDate, b.CreatedAt, b.UpdatedAt,
			dbx.Bool(s.IsSynced), dbx.Bool(s.IsDeleted), b.ID)
		if err != nil {
			return fmt.Errorf("failed to update budget %s: %w", b.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update budget %s: %w", b.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("budget %s: %w", b.ID, common.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	return r.write(ctx, func() error {
		if _, err := r.db.ExecContext(ctx, r.q(`DELETE FROM budgets WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete budget %s: %w", id, err)
		}
		return nil
	})
}

func (r *SQLRepository) MarkSynced(ctx context.Context, seen models.BudgetRecord) (bool, error) {
	var marked bool
	err := r.write(ctx, func() error {
		return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			cur, err := r.get(ctx, tx, seen.ID)
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !cur.Same(seen) {
				return nil
			}
			if _, err := tx.ExecContext(ctx, r.q(`UPDATE budgets SET is_synced = ? WHERE id = ?`), dbx.Bool(true), seen.ID); err != nil {
				return fmt.Errorf("failed to mark budget %s synced: %w", seen.ID, err)
			}
			marked = true
			return nil
		})
	})
	return marked, err
}

func (r *SQLRepository) Promote(ctx context.Context, seen, promoted models.BudgetRecord) (models.BudgetRecord, error) {
	var stored models.BudgetRecord
	err := r.write(ctx, func() error {
		return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			cur, err := r.get(ctx, tx, seen.ID)
			switch {
			case errors.Is(err, common.ErrNotFound):
				stored = promoted
				stored.SyncState = models.Tombstone()
			case err != nil:
				return err
			case cur.Same(seen):
				stored = promoted
			default:
				stored = cur
				stored.ID = promoted.ID
				stored.IsSynced = false
			}

			if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM budgets WHERE id = ?`), seen.ID); err != nil {
				return fmt.Errorf("failed to delete budget %s: %w", seen.ID, err)
			}
			if err := upsert(ctx, tx, r.q(upsertQuery), stored); err != nil {
				return err
			}
			if r.dependents == nil {
				return nil
			}
			_, err = r.dependents.ReassignBudgetTx(ctx, tx, seen.ID, promoted.ID)
			return err
		})
	})
	if err != nil {
		return models.BudgetRecord{}, err
	}
	if r.dependents != nil {
		r.dependents.Notify(ctx)
	}
	return stored, nil
}

func (r *SQLRepository) query(ctx context.Context, query string, params ...any) ([]models.BudgetRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []models.BudgetRecord
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budget rows: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) QueryActive(ctx context.Context, f Filter) ([]models.BudgetRecord, error) {
	where := []string{"is_deleted = 0"}
	var params []any
	if f.ID != "" {
		where = append(where, "id = ?")
		params = append(params, f.ID)
	}
	if f.Name != "" {
		where = append(where, "LOWER(name) LIKE ?")
		params = append(params, "%"+strings.ToLower(f.Name)+"%")
	}
	return r.query(ctx, `SELECT `+columns+` FROM budgets WHERE `+strings.Join(where, " AND ")+
		` ORDER BY created_at DESC, id`, params...)
}

func (r *SQLRepository) QueryPending(ctx context.Context) ([]models.BudgetRecord, error) {
	return r.query(ctx, `SELECT `+columns+` FROM budgets WHERE is_synced = 0 OR is_deleted = 1 ORDER BY id`)
}

func (r *SQLRepository) Watch(ctx context.Context, f Filter) (<-chan []models.BudgetRecord, error) {
	return r.hub.Subscribe(ctx, func(ctx context.Context) ([]models.BudgetRecord, error) {
		return r.QueryActive(ctx, f)
	})
}
