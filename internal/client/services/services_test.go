package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/client/store"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	n   atomic.Int32
	err error
}

func (c *countingTrigger) ScheduleOnce(requireNetwork bool) error {
	c.n.Add(1)
	return c.err
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), dbx.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func syncedBudget(id string) models.BudgetRecord {
	return models.BudgetRecord{ID: id, Name: "Food", Limit: "100", Period: "1_month",
		StartDate: "2024-01-01T00:00:00.000Z", SyncState: models.Synced()}
}

func syncedTx(id, budgetID, typ, amount string) models.TransactionRecord {
	return models.TransactionRecord{ID: id, BudgetID: budgetID, Name: id, Type: typ, Category: "FOOD",
		Amount: amount, DateTime: "2024-01-02T10:00:00.000Z", SyncState: models.Synced()}
}

func TestBudgetService_AddValidates(t *testing.T) {
	st := openStore(t)
	trig := &countingTrigger{}
	svc := NewBudgetService(st.Budgets, st.Transactions, trig, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		b    models.Budget
	}{
		{"empty name", models.Budget{Name: " ", Limit: dec("1"), Period: models.PeriodMonth}},
		{"negative limit", models.Budget{Name: "x", Limit: dec("-1"), Period: models.PeriodMonth}},
		{"unknown period", models.Budget{Name: "x", Limit: dec("1"), Period: "2_days"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.b)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
	assert.Zero(t, trig.n.Load())
}

func TestBudgetService_AddIsPendingAndTriggersSync(t *testing.T) {
	st := openStore(t)
	trig := &countingTrigger{err: errors.New("host stopped")}
	svc := NewBudgetService(st.Budgets, st.Transactions, trig, nil)
	ctx := context.Background()

	b, err := svc.Add(ctx, models.Budget{Name: "Travel", Limit: dec("250.50"), Period: models.PeriodYear})
	require.NoError(t, err, "a failed trigger does not fail the mutation")
	assert.True(t, models.IsLocalID(b.ID))
	assert.False(t, b.StartDate.IsZero())
	assert.EqualValues(t, 1, trig.n.Load())

	pending, err := st.Budgets.QueryPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "250.5", pending[0].Limit)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.Name)
	assert.True(t, dec("250.5").Equal(got.Limit))
}

func TestBudgetService_Update(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.Budgets.Upsert(ctx, syncedBudget("a1")))
	svc := NewBudgetService(st.Budgets, st.Transactions, nil, nil)

	b, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	b.Name = "Groceries"
	_, err = svc.Update(ctx, b)
	require.NoError(t, err)

	r, err := st.Budgets.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", r.Name)
	assert.Equal(t, models.Dirty(), r.SyncState)

	b.ID = "missing"
	_, err = svc.Update(ctx, b)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBudgetService_DeleteCascades(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	trig := &countingTrigger{}
	svc := NewBudgetService(st.Budgets, st.Transactions, trig, nil)

	require.NoError(t, st.Budgets.Upsert(ctx, syncedBudget("a1")))
	require.NoError(t, st.Budgets.Upsert(ctx, syncedBudget("a2")))
	doomed := syncedTx("t1", "a1", "OUTCOME", "5")
	tomb := syncedTx("t2", "a1", "OUTCOME", "6")
	tomb.SyncState = models.Tombstone()
	other := syncedTx("t3", "a2", "OUTCOME", "7")
	for _, r := range []models.TransactionRecord{doomed, tomb, other} {
		require.NoError(t, st.Transactions.Upsert(ctx, r))
	}

	require.NoError(t, svc.Delete(ctx, "a1"))

	for _, id := range []string{"t1", "t2"} {
		_, err := st.Transactions.Get(ctx, id)
		assert.ErrorIs(t, err, common.ErrNotFound, "child %s is hard-deleted", id)
	}
	_, err := st.Transactions.Get(ctx, "t3")
	require.NoError(t, err)

	r, err := st.Budgets.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.Tombstone(), r.SyncState)
	_, err = svc.Get(ctx, "a1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "a1"), common.ErrNotFound)
	assert.EqualValues(t, 1, trig.n.Load())
}

func TestBudgetService_DeleteUnsyncedBudget(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	svc := NewBudgetService(st.Budgets, st.Transactions, nil, nil)

	b, err := svc.Add(ctx, models.Budget{Name: "Draft", Limit: dec("1"), Period: models.PeriodSingle})
	require.NoError(t, err)
	tx := syncedTx("00000000-0000-0000-0000-000000000001", b.ID, "OUTCOME", "1")
	tx.SyncState = models.Dirty()
	require.NoError(t, st.Transactions.Upsert(ctx, tx))

	require.NoError(t, svc.Delete(ctx, b.ID))

	_, err = st.Budgets.Get(ctx, b.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	pending, err := st.Transactions.QueryPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBudgetService_Details(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	svc := NewBudgetService(st.Budgets, st.Transactions, nil, nil)

	require.NoError(t, st.Budgets.Upsert(ctx, syncedBudget("a1")))
	zero := syncedBudget("a2")
	zero.Limit = "0"
	require.NoError(t, st.Budgets.Upsert(ctx, zero))

	deleted := syncedTx("t4", "a1", "OUTCOME", "1000")
	deleted.SyncState = models.Tombstone()
	for _, r := range []models.TransactionRecord{
		syncedTx("t1", "a1", "OUTCOME", "30"),
		syncedTx("t2", "a1", "OUTCOME", "20.5"),
		syncedTx("t3", "a1", "INCOME", "10"),
		deleted,
		syncedTx("t5", "a2", "OUTCOME", "3"),
	} {
		require.NoError(t, st.Transactions.Upsert(ctx, r))
	}

	d, err := svc.Details(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, d.TransactionCount)
	assert.True(t, dec("50.5").Equal(d.TotalOutcome), d.TotalOutcome.String())
	assert.True(t, dec("10").Equal(d.TotalIncome))
	assert.True(t, dec("49.5").Equal(d.Remaining), d.Remaining.String())
	assert.True(t, dec("0.505").Equal(d.Progress), d.Progress.String())

	all, err := svc.DetailsList(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, d := range all {
		if d.ID == "a2" {
			assert.True(t, d.Progress.IsZero())
			assert.True(t, dec("-3").Equal(d.Remaining))
		}
	}
}

func TestBudgetService_Watch(t *testing.T) {
	st := openStore(t)
	svc := NewBudgetService(st.Budgets, st.Transactions, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx)
	require.NoError(t, err)
	assert.Empty(t, <-ch)

	_, err = svc.Add(ctx, models.Budget{Name: "Fun", Limit: dec("5"), Period: models.PeriodWeek})
	require.NoError(t, err)

	select {
	case bs := <-ch:
		require.Len(t, bs, 1)
		assert.Equal(t, "Fun", bs[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}

	cancel()
	for range ch {
	}
}

func TestBudgetService_List(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	svc := NewBudgetService(st.Budgets, st.Transactions, nil, nil)
	require.NoError(t, st.Budgets.Upsert(ctx, syncedBudget("a1")))
	other := syncedBudget("a2")
	other.Name = "Rent"
	require.NoError(t, st.Budgets.Upsert(ctx, other))

	bs, err := svc.List(ctx, budgets.Filter{Name: "ren"})
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, "a2", bs[0].ID)
}

func newTxService(t *testing.T) (*store.Store, TransactionService, *countingTrigger) {
	t.Helper()
	st := openStore(t)
	require.NoError(t, st.Budgets.Upsert(context.Background(), syncedBudget("a1")))
	trig := &countingTrigger{}
	return st, NewTransactionService(st.Transactions, st.Budgets, trig, nil), trig
}

func lunch() models.Transaction {
	return models.Transaction{BudgetID: "a1", Name: "Lunch", Type: models.TransactionOutcome,
		Category: models.CategoryLunch, Amount: dec("12.30")}
}

func TestTransactionService_AddValidates(t *testing.T) {
	_, svc, trig := newTxService(t)
	ctx := context.Background()

	mutate := []func(*models.Transaction){
		func(tx *models.Transaction) { tx.Name = "" },
		func(tx *models.Transaction) { tx.Amount = decimal.Zero },
		func(tx *models.Transaction) { tx.Type = "TRANSFER" },
		func(tx *models.Transaction) { tx.Category = "CRYPTO" },
		func(tx *models.Transaction) { tx.BudgetID = "nope" },
		func(tx *models.Transaction) { tx.LocalImagePath = "/does/not/exist.png" },
	}
	for _, m := range mutate {
		tx := lunch()
		m(&tx)
		_, err := svc.Add(ctx, tx)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
	assert.Zero(t, trig.n.Load())
}

func TestTransactionService_AddAndFilter(t *testing.T) {
	st, svc, trig := newTxService(t)
	ctx := context.Background()

	when := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)
	tx := lunch()
	tx.DateTime = when
	tx.Location = &models.Location{Name: "Cafe", Lat: 56.95, Lng: 24.1}
	added, err := svc.Add(ctx, tx)
	require.NoError(t, err)
	assert.True(t, models.IsLocalID(added.ID))
	assert.EqualValues(t, 1, trig.n.Load())

	rec, err := st.Transactions.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.False(t, rec.IsSynced)

	got, err := svc.List(ctx, transactions.Filter{BudgetID: "a1", From: when.Add(-time.Hour), To: when})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].DateTime.Equal(when))
	require.NotNil(t, got[0].Location)
	assert.Equal(t, "Cafe", got[0].Location.Name)

	got, err = svc.List(ctx, transactions.Filter{Category: models.CategoryFood})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransactionService_DeleteAndUpdate(t *testing.T) {
	st, svc, _ := newTxService(t)
	ctx := context.Background()

	local, err := svc.Add(ctx, lunch())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, local.ID))
	_, err = st.Transactions.Get(ctx, local.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "never pushed rows are removed")

	server := syncedTx("t1", "a1", "OUTCOME", "4")
	server.ImageURL = "https://cdn.example.com/r.jpg"
	require.NoError(t, st.Transactions.Upsert(ctx, server))

	tx, err := svc.Get(ctx, "t1")
	require.NoError(t, err)
	tx.ImageURL = ""
	tx.Amount = dec("4.25")
	_, err = svc.Update(ctx, tx)
	require.NoError(t, err)

	rec, err := st.Transactions.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "4.25", rec.Amount)
	assert.Equal(t, "https://cdn.example.com/r.jpg", rec.ImageURL, "existing attachment is kept")
	assert.False(t, rec.IsSynced)

	require.NoError(t, svc.Delete(ctx, "t1"))
	rec, err = st.Transactions.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.Tombstone(), rec.SyncState)
	_, err = svc.Get(ctx, "t1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionService_AttachImage(t *testing.T) {
	st, svc, trig := newTxService(t)
	ctx := context.Background()
	require.NoError(t, st.Transactions.Upsert(ctx, syncedTx("t1", "a1", "OUTCOME", "4")))

	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))

	assert.ErrorIs(t, svc.AttachImage(ctx, "t1", ""), common.ErrValidation)
	assert.ErrorIs(t, svc.AttachImage(ctx, "t1", dir), common.ErrValidation)
	require.NoError(t, svc.AttachImage(ctx, "t1", path))

	rec, err := st.Transactions.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, path, rec.LocalImagePath)
	assert.True(t, rec.HasPendingAttachment())
	assert.False(t, rec.IsSynced)
	assert.EqualValues(t, 1, trig.n.Load())
}

func TestTransactionService_Watch(t *testing.T) {
	_, svc, _ := newTxService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx, transactions.Filter{BudgetID: "a1"})
	require.NoError(t, err)
	assert.Empty(t, <-ch)

	_, err = svc.Add(ctx, lunch())
	require.NoError(t, err)
	select {
	case txs := <-ch:
		assert.Len(t, txs, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}
}
