package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/filex"
	"github.com/shopspring/decimal"
)

// fakeRemote is an in-memory backend. Failures are injected per call key,
// e.g. "ListBudgets:2" or "UpdateTransaction:t1".
type fakeRemote struct {
	mu sync.Mutex

	budgets []remote.Budget
	txs     []remote.Transaction
	perPage int
	seq     int

	calls []string
	fail  map[string]remote.Kind
	// during runs while the keyed call is in flight.
	during map[string]func()
	// corrupt makes list pages return a record with an unparseable date.
	corrupt bool
}

var _ remote.Client = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{perPage: 2, fail: map[string]remote.Kind{}, during: map[string]func(){}}
}

func (f *fakeRemote) nextID() string {
	f.seq++
	return fmt.Sprintf("%024x", f.seq)
}

func failed[T any](kind remote.Kind) remote.Result[T] {
	if kind == remote.KindBusiness {
		return remote.BusinessError[T]("rejected by server")
	}
	return remote.TransportError[T](errors.New("connection reset"))
}

// call records key and reports an injected failure for it.
func (f *fakeRemote) call(key string) (remote.Kind, bool) {
	f.calls = append(f.calls, key)
	if fn, ok := f.during[key]; ok {
		fn()
	}
	k, ok := f.fail[key]
	return k, ok
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func paginate[T any](all []T, page, perPage int) remote.Page[T] {
	last := (len(all) + perPage - 1) / perPage
	if last == 0 {
		last = 1
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(all))
	var items []T
	if start < len(all) {
		items = append(items, all[start:end]...)
	}
	return remote.Page[T]{Items: items, Pagination: remote.Pagination{
		CurrentPage: page, LastPage: last, PerPage: perPage, Total: len(all),
	}}
}

func (f *fakeRemote) ListBudgets(_ context.Context, page int) remote.Result[remote.Page[remote.Budget]] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call(fmt.Sprintf("ListBudgets:%d", page)); ok {
		return failed[remote.Page[remote.Budget]](k)
	}
	p := paginate(f.budgets, page, f.perPage)
	if f.corrupt && page == 1 {
		p.Items = append(p.Items, remote.Budget{ID: "badbudget", Name: "Broken", StartDate: "yesterday-ish"})
	}
	return remote.Success(p)
}

func (f *fakeRemote) CreateBudget(_ context.Context, p remote.BudgetPayload) remote.Result[remote.Budget] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("CreateBudget:" + p.Name); ok {
		return failed[remote.Budget](k)
	}
	b := remote.Budget{
		ID: f.nextID(), Name: p.Name, Amount: decimal.RequireFromString(p.Amount.String()),
		Period: p.Period, StartDate: p.StartDate,
	}
	f.budgets = append(f.budgets, b)
	return remote.Success(b)
}

func (f *fakeRemote) UpdateBudget(_ context.Context, id string, p remote.BudgetPayload) remote.Result[remote.Budget] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("UpdateBudget:" + id); ok {
		return failed[remote.Budget](k)
	}
	for i := range f.budgets {
		if f.budgets[i].ID == id {
			f.budgets[i].Name = p.Name
			f.budgets[i].Amount = decimal.RequireFromString(p.Amount.String())
			f.budgets[i].Period = p.Period
			f.budgets[i].StartDate = p.StartDate
			return remote.Success(f.budgets[i])
		}
	}
	return remote.BusinessError[remote.Budget]("budget not found")
}

func (f *fakeRemote) DeleteBudget(_ context.Context, id string) remote.Result[struct{}] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("DeleteBudget:" + id); ok {
		return failed[struct{}](k)
	}
	for i := range f.budgets {
		if f.budgets[i].ID == id {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return remote.Success(struct{}{})
		}
	}
	return remote.BusinessError[struct{}]("budget not found")
}

func (f *fakeRemote) ListTransactions(_ context.Context, page int) remote.Result[remote.Page[remote.Transaction]] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call(fmt.Sprintf("ListTransactions:%d", page)); ok {
		return failed[remote.Page[remote.Transaction]](k)
	}
	return remote.Success(paginate(f.txs, page, f.perPage))
}

func (f *fakeRemote) CreateTransaction(_ context.Context, p remote.TransactionPayload) remote.Result[remote.Transaction] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("CreateTransaction:" + p.Name); ok {
		return failed[remote.Transaction](k)
	}
	t := txFromPayload(f.nextID(), p)
	f.txs = append(f.txs, t)
	return remote.Success(t)
}

func (f *fakeRemote) UpdateTransaction(_ context.Context, id string, p remote.TransactionPayload) remote.Result[remote.Transaction] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("UpdateTransaction:" + id); ok {
		return failed[remote.Transaction](k)
	}
	for i := range f.txs {
		if f.txs[i].ID == id {
			f.txs[i] = txFromPayload(id, p)
			return remote.Success(f.txs[i])
		}
	}
	return remote.BusinessError[remote.Transaction]("transaction not found")
}

func (f *fakeRemote) DeleteTransaction(_ context.Context, id string) remote.Result[struct{}] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.call("DeleteTransaction:" + id); ok {
		return failed[struct{}](k)
	}
	for i := range f.txs {
		if f.txs[i].ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return remote.Success(struct{}{})
		}
	}
	return remote.BusinessError[struct{}]("transaction not found")
}

func (f *fakeRemote) UploadAttachment(context.Context, string, []byte) remote.Result[remote.Attachment] {
	return remote.BusinessError[remote.Attachment]("use the uploader")
}

func (f *fakeRemote) Ping(context.Context) error { return nil }
func (f *fakeRemote) Close() error               { return nil }

func txFromPayload(id string, p remote.TransactionPayload) remote.Transaction {
	return remote.Transaction{
		ID: id, Name: p.Name, BudgetID: p.BudgetID, Type: p.Type, Category: p.Category,
		Description: p.Description, Amount: decimal.RequireFromString(p.Amount.String()),
		DateTime: p.DateTime, Image: p.Image, Location: p.Location,
	}
}

type fakeUploader struct {
	uploaded []string
	err      error
}

func (u *fakeUploader) Upload(_ context.Context, a *filex.Attachment) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploaded = append(u.uploaded, a.Name)
	return "https://cdn.example.com/" + a.Name, nil
}
