package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/watch"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
)

const columns = `id, user_id, budget_id, name, description, type, category, amount, date_time,
	image_url, local_image_path, location_name, location_lat, location_lng,
	created_at, updated_at, is_synced, is_deleted`

const upsertQuery = `
	INSERT INTO transactions (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		budget_id = excluded.budget_id,
		name = excluded.name,
		description = excluded.description,
		type = excluded.type,
		category = excluded.category,
		amount = excluded.amount,
		date_time = excluded.date_time,
		image_url = excluded.image_url,
		local_image_path = excluded.local_image_path,
		location_name = excluded.location_name,
		location_lat = excluded.location_lat,
		location_lng = excluded.location_lng,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted`

const getQuery = `SELECT ` + columns + ` FROM transactions WHERE id = ?`

type SQLRepository struct {
	db      *sql.DB
	dialect dbx.Dialect
	hub     *watch.Hub[[]models.TransactionRecord]

	mu sync.Mutex
}

var _ Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *sql.DB, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, hub: watch.NewHub[[]models.TransactionRecord]()}
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

func (r *SQLRepository) write(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	err := fn()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.Notify(ctx)
	return nil
}

func args(t models.TransactionRecord) []any {
	s := t.SyncState.Normalize()
	return []any{
		t.ID, t.UserID, t.BudgetID, t.Name, t.Description, t.Type, t.Category, t.Amount, t.DateTime,
		t.ImageURL, t.LocalImagePath, t.LocationName, t.LocationLat, t.LocationLng,
		t.CreatedAt, t.UpdatedAt, dbx.Bool(s.IsSynced), dbx.Bool(s.IsDeleted),
	}
}

func upsert(ctx context.Context, db dbx.DBTX, query string, t models.TransactionRecord) error {
	if t.ID == "" {
		return fmt.Errorf("failed to upsert transaction: %w: empty id", common.ErrValidation)
	}
	if _, err := db.ExecContext(ctx, query, args(t)...); err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLRepository) Upsert(ctx context.Context, t models.TransactionRecord) error {
	return r.write(ctx, func() error {
		return upsert(ctx, r.db, r.q(upsertQuery), t)
	})
}

func (r *SQLRepository) UpsertMany(ctx context.Context, rs []models.TransactionRecord) error {
	if len(rs) == 0 {
		return nil
	}
	return r.write(ctx, func() error {
		return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			for _, t := range rs {
				if err := upsert(ctx, tx, r.q(upsertQuery), t); err != nil {
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

func scan(s scanner) (models.TransactionRecord, error) {
	var (
		t                 models.TransactionRecord
		lat, lng          sql.NullFloat64
		synced, isDeleted int64
	)
	err := s.Scan(&t.ID, &t.UserID, &t.BudgetID, &t.Name, &t.Description, &t.Type, &t.Category, &t.Amount,
		&t.DateTime, &t.ImageURL, &t.LocalImagePath, &t.LocationName, &lat, &lng,
		&t.CreatedAt, &t.UpdatedAt, &synced, &isDeleted)
	if lat.Valid {
		t.LocationLat = &lat.Float64
	}
	if lng.Valid {
		t.LocationLng = &lng.Float64
	}
	t.IsSynced = synced != 0
	t.IsDeleted = isDeleted != 0
	return t, err
}

func (r *SQLRepository) Get(ctx context.Context, id string) (models.TransactionRecord, error) {
	return r.get(ctx, r.db, id)
}

func (r *SQLRepository) get(ctx context.Context, db dbx.DBTX, id string) (models.TransactionRecord, error) {
	t, err := scan(db.QueryRowContext(ctx, r.q(getQuery), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLRepository) Update(ctx context.Context, t models.TransactionRecord) error {
	return r.write(ctx, func() error {
		s := t.SyncState.Normalize()
		res, err := r.db.ExecContext(ctx, r.q(`
			UPDATE transactions SET
				user_id = ?, budget_id = ?, name = ?, description = ?, type = ?, category = ?,
				amount = ?, date_time = ?, image_url = ?, local_image_path = ?,
				location_name = ?, location_lat = ?, location_lng = ?,
				created_at = ?, updated_at = ?, is_synced = ?, is_deleted = ?
			WHERE id = ?`),
			t.UserID, t.BudgetID, t.Name, t.Description, t.Type, t.Category,
			t.Amount, t.DateTime, t.ImageURL, t.LocalImagePath,
			t.LocationName, t.LocationLat, t.LocationLng,
			t.CreatedAt, t.UpdatedAt, dbx.Bool(s.IsSynced), dbx.Bool(s.IsDeleted), t.ID)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("transaction %s: %w", t.ID, common.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	return r.write(ctx, func() error {
		if _, err := r.db.ExecContext(ctx, r.q(`DELETE FROM transactions WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete transaction %s: %w", id, err)
		}
		return nil
	})
}

func (r *SQLRepository) MarkSynced(ctx context.Context, seen, pushed models.TransactionRecord) (bool, error) {
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
			if cur.Same(seen) {
				pushed.SyncState = models.Synced()
				marked = true
				return upsert(ctx, tx, r.q(upsertQuery), pushed)
			}
			if !uploaded(seen, cur, pushed) {
				return nil
			}
			if _, err := tx.ExecContext(ctx, r.q(`UPDATE transactions SET image_url = ?, local_image_path = '' WHERE id = ?`),
				pushed.ImageURL, seen.ID); err != nil {
				return fmt.Errorf("failed to record attachment of transaction %s: %w", seen.ID, err)
			}
			return nil
		})
	})
	return marked, err
}

// uploaded reports whether the file seen referred to was uploaded as part of
// pushed and cur still refers to that same file.
func uploaded(seen, cur, pushed models.TransactionRecord) bool {
	return seen.HasPendingAttachment() && cur.LocalImagePath == seen.LocalImagePath &&
		!pushed.HasPendingAttachment() && pushed.ImageURL != ""
}

func (r *SQLRepository) Promote(ctx context.Context, seen, promoted models.TransactionRecord) (models.TransactionRecord, error) {
	var stored models.TransactionRecord
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
				if uploaded(seen, cur, promoted) {
					stored.ImageURL = promoted.ImageURL
					stored.LocalImagePath = ""
				}
			}

			if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM transactions WHERE id = ?`), seen.ID); err != nil {
				return fmt.Errorf("failed to delete transaction %s: %w", seen.ID, err)
			}
			return upsert(ctx, tx, r.q(upsertQuery), stored)
		})
	})
	if err != nil {
		return models.TransactionRecord{}, err
	}
	return stored, nil
}

func (r *SQLRepository) DeleteByBudget(ctx context.Context, budgetID string) (int64, error) {
	var n int64
	err := r.write(ctx, func() error {
		res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM transactions WHERE budget_id = ?`), budgetID)
		if err != nil {
			return fmt.Errorf("failed to delete transactions of budget %s: %w", budgetID, err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// ReassignBudgetTx points every row of oldBudgetID at newBudgetID inside tx
// without touching sync flags. Observers are refreshed by Notify once tx is
// committed.
func (r *SQLRepository) ReassignBudgetTx(ctx context.Context, tx dbx.DBTX, oldBudgetID, newBudgetID string) (int64, error) {
	res, err := tx.ExecContext(ctx, r.q(`UPDATE transactions SET budget_id = ? WHERE budget_id = ?`), newBudgetID, oldBudgetID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign transactions of budget %s: %w", oldBudgetID, err)
	}
	return res.RowsAffected()
}

// Notify refreshes observers after a write made outside this repository.
func (r *SQLRepository) Notify(ctx context.Context) {
	// a failed reload leaves observers on their previous snapshot
	_ = r.hub.Notify(context.WithoutCancel(ctx))
}

func (r *SQLRepository) query(ctx context.Context, query string, params ...any) ([]models.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}
	return out, nil
}

// QueryActive relies on date_time being stored in the fixed-width UTC form
// so that range bounds compare as text.
func (r *SQLRepository) QueryActive(ctx context.Context, f Filter) ([]models.TransactionRecord, error) {
	where := []string{"is_deleted = 0"}
	var params []any
	if f.BudgetID != "" {
		where = append(where, "budget_id = ?")
		params = append(params, f.BudgetID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		params = append(params, string(f.Type))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		params = append(params, string(f.Category))
	}
	if !f.From.IsZero() {
		where = append(where, "date_time >= ?")
		params = append(params, mapper.FormatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date_time <= ?")
		params = append(params, mapper.FormatTime(f.To))
	}
	return r.query(ctx, `SELECT `+columns+` FROM transactions WHERE `+strings.Join(where, " AND ")+
		` ORDER BY date_time DESC, id`, params...)
}

func (r *SQLRepository) QueryPending(ctx context.Context) ([]models.TransactionRecord, error) {
	return r.query(ctx, `SELECT `+columns+` FROM transactions WHERE is_synced = 0 OR is_deleted = 1 ORDER BY id`)
}

func (r *SQLRepository) Watch(ctx context.Context, f Filter) (<-chan []models.TransactionRecord, error) {
	return r.hub.Subscribe(ctx, func(ctx context.Context) ([]models.TransactionRecord, error) {
		return r.QueryActive(ctx, f)
	})
}
