package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/client/store"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	st       *store.Store
	remote   *fakeRemote
	uploader *fakeUploader
	orch     *Orchestrator
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	st, err := store.Open(context.Background(), dbx.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	e := &env{st: st, remote: newFakeRemote(), uploader: &fakeUploader{}}
	opts.now = func() time.Time { return fixedNow }
	e.orch = New(Repos{Budgets: st.Budgets, Transactions: st.Transactions, Metadata: st.Metadata},
		e.remote, e.uploader, nil, opts)
	return e
}

func serverBudget(id, name string) remote.Budget {
	return remote.Budget{ID: id, Name: name, Amount: decimal.NewFromInt(100), Period: "1_month", StartDate: "2024-01-01"}
}

func serverTx(id, budgetID, name string) remote.Transaction {
	return remote.Transaction{
		ID: id, BudgetID: budgetID, Name: name, Type: "OUTCOME", Category: "FOOD",
		Amount: decimal.RequireFromString("9.99"), DateTime: "2024-02-01T10:00:00Z",
	}
}

func localBudget(name string) models.BudgetRecord {
	return models.BudgetRecord{
		ID: models.NewLocalID(), Name: name, Limit: "50", Period: "single",
		StartDate: "2024-03-01T00:00:00.000Z", SyncState: models.Dirty(),
	}
}

func localTx(budgetID, name string) models.TransactionRecord {
	return models.TransactionRecord{
		ID: models.NewLocalID(), BudgetID: budgetID, Name: name, Type: "OUTCOME", Category: "FOOD",
		Amount: "3.5", DateTime: "2024-03-02T08:00:00.000Z", SyncState: models.Dirty(),
	}
}

func (e *env) activeBudgets(t *testing.T) []models.BudgetRecord {
	t.Helper()
	rs, err := e.st.Budgets.QueryActive(context.Background(), budgets.Filter{})
	require.NoError(t, err)
	return rs
}

func (e *env) activeTxs(t *testing.T) []models.TransactionRecord {
	t.Helper()
	rs, err := e.st.Transactions.QueryActive(context.Background(), transactions.Filter{})
	require.NoError(t, err)
	return rs
}

func (e *env) pendingCount(t *testing.T) int {
	t.Helper()
	b, err := e.st.Budgets.QueryPending(context.Background())
	require.NoError(t, err)
	tx, err := e.st.Transactions.QueryPending(context.Background())
	require.NoError(t, err)
	return len(b) + len(tx)
}

func TestSync_PaginationCompleteness(t *testing.T) {
	e := newEnv(t, Options{})
	for i, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		e.remote.budgets = append(e.remote.budgets, serverBudget(id, "B"+string(rune('1'+i))))
	}
	e.remote.txs = []remote.Transaction{serverTx("t1", "a1", "x"), serverTx("t2", "a1", "y"), serverTx("t3", "a2", "z")}

	rep, err := e.orch.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ListBudgets:1", "ListBudgets:2", "ListBudgets:3",
		"ListTransactions:1", "ListTransactions:2",
	}, e.remote.Calls())
	assert.Equal(t, 5, rep.Budgets.Pulled)
	assert.Equal(t, 3, rep.Transactions.Pulled)
	assert.Len(t, e.activeBudgets(t), 5)
	assert.Len(t, e.activeTxs(t), 3)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_EmptyRemote(t *testing.T) {
	e := newEnv(t, Options{})
	rep, err := e.orch.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, []string{"ListBudgets:1", "ListTransactions:1"}, e.remote.Calls())
}

func TestSync_IdempotentResync(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}
	e.remote.txs = []remote.Transaction{serverTx("t1", "a1", "Lunch")}
	require.NoError(t, e.st.Budgets.Upsert(ctx, localBudget("Travel")))

	_, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	firstB, firstT := e.activeBudgets(t), e.activeTxs(t)
	callsAfterFirst := len(e.remote.Calls())

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(firstB, e.activeBudgets(t)); diff != "" {
		t.Fatalf("budgets changed on re-sync (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstT, e.activeTxs(t)); diff != "" {
		t.Fatalf("transactions changed on re-sync (-first +second):\n%s", diff)
	}
	assert.Zero(t, rep.Budgets.Created+rep.Budgets.Updated+rep.Budgets.Deleted)
	for _, c := range e.remote.Calls()[callsAfterFirst:] {
		assert.Contains(t, c, "List", "second pass only lists")
	}
}

func TestSync_IDPromotionReassignsChildren(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	b := localBudget("Groceries")
	tx := localTx(b.ID, "Milk")
	require.NoError(t, e.st.Budgets.Upsert(ctx, b))
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Budgets.Created)
	assert.Equal(t, 1, rep.Transactions.Created)

	bs := e.activeBudgets(t)
	require.Len(t, bs, 1)
	assert.False(t, models.IsLocalID(bs[0].ID))
	assert.True(t, bs[0].IsSynced)
	_, err = e.st.Budgets.Get(ctx, b.ID)
	assert.Error(t, err, "local id is gone")

	txs := e.activeTxs(t)
	require.Len(t, txs, 1)
	assert.False(t, models.IsLocalID(txs[0].ID))
	assert.Equal(t, bs[0].ID, txs[0].BudgetID)
	require.Len(t, e.remote.txs, 1)
	assert.Equal(t, bs[0].ID, e.remote.txs[0].BudgetID, "remote never sees the local budget id")
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_LocalOnlyDeleteShortcut(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	b := localBudget("Scratch")
	b.SyncState = models.Tombstone()
	tx := localTx(models.NewLocalID(), "Scratch tx")
	tx.SyncState = models.Tombstone()
	require.NoError(t, e.st.Budgets.Upsert(ctx, b))
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ListBudgets:1", "ListTransactions:1"}, e.remote.Calls(), "no remote mutation")
	assert.Equal(t, 1, rep.Budgets.Deleted)
	assert.Equal(t, 1, rep.Transactions.Deleted)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_DeletePrecedence(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}

	edited := models.BudgetRecord{ID: "a1", Name: "Food (renamed)", Limit: "999", Period: "single",
		SyncState: models.SyncState{IsSynced: false, IsDeleted: true}}
	require.NoError(t, e.st.Budgets.Upsert(ctx, edited))

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)

	assert.Contains(t, e.remote.Calls(), "DeleteBudget:a1")
	assert.NotContains(t, e.remote.Calls(), "UpdateBudget:a1")
	assert.Equal(t, 1, rep.Budgets.Kept)
	assert.Equal(t, 1, rep.Budgets.Deleted)
	assert.Empty(t, e.remote.budgets)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_FailedRemoteDeleteKeepsTombstone(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()
	e.remote.txs = []remote.Transaction{serverTx("t1", "a1", "Lunch")}
	e.remote.fail["DeleteTransaction:t1"] = remote.KindTransport

	require.NoError(t, e.st.Transactions.Upsert(ctx, models.TransactionRecord{
		ID: "t1", BudgetID: "a1", Name: "Lunch", Amount: "9.99", DateTime: "2024-02-01T10:00:00.000Z",
		SyncState: models.Tombstone(),
	}))

	_, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, remote.ErrTransport)

	got, err := e.st.Transactions.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.Tombstone(), got.SyncState)
	assert.Empty(t, e.activeTxs(t))
}

func TestSync_LastPullWinsOverwritesPendingEdit(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Server name")}

	require.NoError(t, e.st.Budgets.Upsert(ctx, models.BudgetRecord{
		ID: "a1", Name: "Offline edit", Limit: "100", Period: "1_month", SyncState: models.Dirty(),
	}))

	_, err := e.orch.Sync(ctx)
	require.NoError(t, err)

	got, err := e.st.Budgets.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Server name", got.Name)
	assert.True(t, got.IsSynced)
	assert.NotContains(t, e.remote.Calls(), "UpdateBudget:a1")
}

func TestSync_SkipPendingPushesLocalEdit(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Server name")}

	require.NoError(t, e.st.Budgets.Upsert(ctx, models.BudgetRecord{
		ID: "a1", Name: "Offline edit", Limit: "100", Period: "1_month", SyncState: models.Dirty(),
	}))

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Budgets.Updated)
	assert.Equal(t, "Offline edit", e.remote.budgets[0].Name)

	got, err := e.st.Budgets.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Offline edit", got.Name)
	assert.True(t, got.IsSynced)
}

func TestSync_PartialPushResilience(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, name := range []string{"one", "two", "three"} {
		b := localBudget(name)
		ids = append(ids, b.ID)
		require.NoError(t, e.st.Budgets.Upsert(ctx, b))
	}
	e.remote.fail["CreateBudget:two"] = remote.KindBusiness

	rep, err := e.orch.Sync(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, remote.ErrBusiness)
	assert.Len(t, multierr.Errors(err), 1, "exactly one error")
	assert.Equal(t, 2, rep.Budgets.Created)
	assert.Equal(t, 1, rep.Budgets.Failed)
	assert.False(t, rep.OK())

	pending, err := e.st.Budgets.QueryPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "two", pending[0].Name)
	assert.True(t, models.IsLocalID(pending[0].ID), "flags and id untouched")

	st, err := LastStatus(ctx, e.st.Metadata)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, st.At)
	assert.Contains(t, st.Error, "rejected by server")
}

func TestSync_PullFailureAbortsPass(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "A"), serverBudget("a2", "B"), serverBudget("a3", "C")}
	e.remote.fail["ListBudgets:2"] = remote.KindTransport
	require.NoError(t, e.st.Budgets.Upsert(ctx, localBudget("Offline")))

	rep, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, remote.ErrTransport)
	assert.True(t, rep.PullFailed)
	assert.True(t, rep.PushSkipped)
	assert.Equal(t, 2, rep.Budgets.Pulled, "first page is kept")
	assert.Equal(t, []string{"ListBudgets:1", "ListBudgets:2"}, e.remote.Calls(), "nothing is pushed")
	assert.Zero(t, rep.Budgets.Created)
	assert.Equal(t, 1, e.pendingCount(t))
}

func TestSync_PullFailureCanStillPush(t *testing.T) {
	e := newEnv(t, Options{PushAfterPullFailure: true})
	ctx := context.Background()
	e.remote.fail["ListBudgets:1"] = remote.KindBusiness
	require.NoError(t, e.st.Budgets.Upsert(ctx, localBudget("Offline")))

	rep, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, remote.ErrBusiness)
	assert.True(t, rep.PullFailed)
	assert.False(t, rep.PushSkipped)
	assert.Equal(t, 1, rep.Budgets.Created)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_EditDuringUpdateStaysPending(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "v0")}
	require.NoError(t, e.st.Budgets.Upsert(ctx, models.BudgetRecord{
		ID: "a1", Name: "v1", Limit: "100", Period: "1_month", StartDate: "2024-01-01T00:00:00.000Z",
		SyncState: models.Dirty(),
	}))
	e.remote.during["UpdateBudget:a1"] = func() {
		cur, err := e.st.Budgets.Get(ctx, "a1")
		require.NoError(t, err)
		cur.Name = "v2"
		require.NoError(t, e.st.Budgets.Update(ctx, cur))
	}

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Budgets.Updated)
	assert.Equal(t, "v1", e.remote.budgets[0].Name)

	got, err := e.st.Budgets.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.False(t, got.IsSynced, "the newer edit still has to be pushed")

	delete(e.remote.during, "UpdateBudget:a1")
	_, err = e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", e.remote.budgets[0].Name)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_EditDuringCreateIsPushedNext(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}

	tx := localTx("a1", "Dinner")
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))
	e.remote.during["CreateTransaction:Dinner"] = func() {
		cur, err := e.st.Transactions.Get(ctx, tx.ID)
		require.NoError(t, err)
		cur.Amount = "42"
		require.NoError(t, e.st.Transactions.Update(ctx, cur))
	}

	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Transactions.Created)

	txs := e.activeTxs(t)
	require.Len(t, txs, 1)
	assert.False(t, models.IsLocalID(txs[0].ID), "id is promoted")
	assert.Equal(t, "42", txs[0].Amount)
	assert.False(t, txs[0].IsSynced)

	_, err = e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Contains(t, e.remote.Calls(), "UpdateTransaction:"+txs[0].ID)
	require.Len(t, e.remote.txs, 1)
	assert.Equal(t, "42", e.remote.txs[0].Amount.String())
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_DeleteDuringCreateReachesServer(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()

	b := localBudget("Short-lived")
	require.NoError(t, e.st.Budgets.Upsert(ctx, b))
	e.remote.during["CreateBudget:Short-lived"] = func() {
		require.NoError(t, e.st.Budgets.Delete(ctx, b.ID))
	}

	_, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, e.remote.budgets, 1)
	assert.Empty(t, e.activeBudgets(t))
	assert.Equal(t, 1, e.pendingCount(t), "tombstone under the server id")

	delete(e.remote.during, "CreateBudget:Short-lived")
	rep, err := e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Budgets.Deleted)
	assert.Empty(t, e.remote.budgets)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_UnmappableRecordIsSkipped(t *testing.T) {
	e := newEnv(t, Options{})
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Good")}
	e.remote.corrupt = true

	rep, err := e.orch.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badbudget")
	assert.False(t, rep.PullFailed)
	assert.Equal(t, 1, rep.Budgets.Failed)
	assert.Equal(t, 1, rep.Budgets.Pulled)
	assert.Contains(t, e.remote.Calls(), "ListTransactions:1", "pull continues")
}

func TestSync_TransactionWaitsForBudget(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	b := localBudget("Later")
	tx := localTx(b.ID, "Orphan for now")
	require.NoError(t, e.st.Budgets.Upsert(ctx, b))
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))
	e.remote.fail["CreateBudget:Later"] = remote.KindTransport

	rep, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, ErrBudgetNotSynced)
	assert.Equal(t, 1, rep.Transactions.Failed)
	assert.NotContains(t, e.remote.Calls(), "CreateTransaction:Orphan for now")
	assert.Equal(t, 2, e.pendingCount(t))

	delete(e.remote.fail, "CreateBudget:Later")
	_, err = e.orch.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, e.pendingCount(t))
}

func TestSync_AttachmentUploadedBeforeCreate(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o600))

	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}
	tx := localTx("a1", "Dinner")
	tx.LocalImagePath = path
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))

	_, err := e.orch.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"receipt.jpg"}, e.uploader.uploaded)
	require.Len(t, e.remote.txs, 1)
	assert.Equal(t, "https://cdn.example.com/receipt.jpg", e.remote.txs[0].Image)

	txs := e.activeTxs(t)
	require.Len(t, txs, 1)
	assert.Equal(t, "https://cdn.example.com/receipt.jpg", txs[0].ImageURL)
	assert.Empty(t, txs[0].LocalImagePath)
}

func TestSync_AttachmentOnUpdateClearsLocalPath(t *testing.T) {
	e := newEnv(t, Options{PullPolicy: SkipPending})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "new.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	e.remote.txs = []remote.Transaction{serverTx("t1", "a1", "Lunch")}
	require.NoError(t, e.st.Transactions.Upsert(ctx, models.TransactionRecord{
		ID: "t1", BudgetID: "a1", Name: "Lunch", Type: "OUTCOME", Category: "FOOD", Amount: "9.99",
		DateTime: "2024-02-01T10:00:00.000Z", ImageURL: "https://cdn.example.com/old.png",
		LocalImagePath: path, SyncState: models.Dirty(),
	}))

	_, err := e.orch.Sync(ctx)
	require.NoError(t, err)

	got, err := e.st.Transactions.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
	assert.Equal(t, "https://cdn.example.com/new.png", got.ImageURL)
	assert.Empty(t, got.LocalImagePath)
}

func TestSync_UploadFailureSkipsOnlyThatRow(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.uploader.err = errors.New("bucket unavailable")

	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}
	withFile := localTx("a1", "With receipt")
	withFile.LocalImagePath = filepath.Join(t.TempDir(), "missing.jpg")
	require.NoError(t, os.WriteFile(withFile.LocalImagePath, []byte("x"), 0o600))
	plain := localTx("a1", "Plain")
	require.NoError(t, e.st.Transactions.Upsert(ctx, withFile))
	require.NoError(t, e.st.Transactions.Upsert(ctx, plain))

	rep, err := e.orch.Sync(ctx)
	require.ErrorContains(t, err, "bucket unavailable")
	assert.Equal(t, 1, rep.Transactions.Failed)
	assert.Equal(t, 1, rep.Transactions.Created)
	assert.NotContains(t, e.remote.Calls(), "CreateTransaction:With receipt")

	got, err := e.st.Transactions.Get(ctx, withFile.ID)
	require.NoError(t, err)
	assert.Equal(t, withFile.LocalImagePath, got.LocalImagePath)
	assert.False(t, got.IsSynced)
}

func TestSync_MissingAttachmentFileIsBusinessError(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.remote.budgets = []remote.Budget{serverBudget("a1", "Food")}
	tx := localTx("a1", "Ghost")
	tx.LocalImagePath = filepath.Join(t.TempDir(), "gone.jpg")
	require.NoError(t, e.st.Transactions.Upsert(ctx, tx))

	_, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, remote.ErrBusiness)
	assert.Empty(t, e.uploader.uploaded)
}

func TestSync_Cancelled(t *testing.T) {
	e := newEnv(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := e.orch.Sync(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.remote.Calls())

	st, err := LastStatus(context.Background(), e.st.Metadata)
	require.NoError(t, err)
	assert.False(t, st.Never(), "status is recorded after cancellation")
	assert.NotNil(t, rep)
}

func TestSync_SuccessClearsLastError(t *testing.T) {
	e := newEnv(t, Options{})
	ctx := context.Background()
	e.remote.fail["ListBudgets:1"] = remote.KindTransport

	_, err := e.orch.Sync(ctx)
	require.Error(t, err)
	st, err := LastStatus(ctx, e.st.Metadata)
	require.NoError(t, err)
	assert.NotEmpty(t, st.Error)

	delete(e.remote.fail, "ListBudgets:1")
	_, err = e.orch.Sync(ctx)
	require.NoError(t, err)
	st, err = LastStatus(ctx, e.st.Metadata)
	require.NoError(t, err)
	assert.Empty(t, st.Error)
}
