package remotesim

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/shopspring/decimal"
)

// DefaultPerPage is the list page size.
const DefaultPerPage = 20

var (
	periods = []string{"single", "1_week", "1_month", "1_year"}
	types   = []string{"INCOME", "OUTCOME"}
)

// Backend keeps every user's budgets, transactions and uploads in memory.
// Records are listed in creation order.
type Backend struct {
	perPage int
	fileURL string
	faults  *Faults
	now     func() time.Time

	mu          sync.Mutex
	budgets     map[string]*remote.Budget
	budgetOrder []string
	txs         map[string]*remote.Transaction
	txOrder     []string
	files       map[string][]byte
	calls       map[string]int
}

// NewBackend builds an empty backend. fileURL prefixes the image_url of
// uploads; perPage <= 0 means DefaultPerPage.
func NewBackend(perPage int, fileURL string, faults *Faults) *Backend {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if faults == nil {
		faults = NewFaults()
	}
	return &Backend{
		perPage: perPage,
		fileURL: fileURL,
		faults:  faults,
		now:     time.Now,
		budgets: map[string]*remote.Budget{},
		txs:     map[string]*remote.Transaction{},
		files:   map[string][]byte{},
		calls:   map[string]int{},
	}
}

func (b *Backend) Faults() *Faults { return b.faults }

// SetFileURL changes the prefix of image_url for later uploads.
func (b *Backend) SetFileURL(u string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileURL = u
}

// Calls reports how many times op was invoked, failed calls included.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// enter counts the call and returns an injected fault, if any. It must be
// called without b.mu held.
func (b *Backend) enter(op string) error {
	b.mu.Lock()
	b.calls[op]++
	b.mu.Unlock()
	return b.faults.take(op)
}

func newID() (string, error) {
	return common.MakeRandHexString(12)
}

func (b *Backend) stamp() string {
	return b.now().UTC().Format(time.RFC3339Nano)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, invalid("amount %q is not a number", n)
	}
	return d, nil
}

func parseWireTime(field, s string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", invalid("%s %q is not an RFC 3339 time", field, s)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

func paginate[T any](all []T, page, perPage int) remote.Page[T] {
	if page < 1 {
		page = 1
	}
	last := max(1, (len(all)+perPage-1)/perPage)

	items := []T{}
	if start := (page - 1) * perPage; start < len(all) {
		items = all[start:min(start+perPage, len(all))]
	}
	return remote.Page[T]{
		Items: items,
		Pagination: remote.Pagination{
			CurrentPage: page,
			LastPage:    last,
			PerPage:     perPage,
			Total:       len(all),
		},
	}
}

// ---- budgets ----

func (b *Backend) validBudget(p remote.BudgetPayload) (decimal.Decimal, string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return decimal.Zero, "", invalid("name is required")
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return decimal.Zero, "", err
	}
	if amount.IsNegative() {
		return decimal.Zero, "", invalid("amount must not be negative")
	}
	if p.Period != "" && !slices.Contains(periods, p.Period) {
		return decimal.Zero, "", invalid("unknown period %q", p.Period)
	}
	start := b.stamp()
	if p.StartDate != "" {
		if start, err = parseWireTime("start_date", p.StartDate); err != nil {
			return decimal.Zero, "", err
		}
	}
	return amount, start, nil
}

// view fills the computed fields of a budget. b.mu must be held.
func (b *Backend) view(bg *remote.Budget) remote.Budget {
	income, outcome := decimal.Zero, decimal.Zero
	for _, t := range b.txs {
		if t.BudgetID != bg.ID {
			continue
		}
		if t.Type == "INCOME" {
			income = income.Add(t.Amount)
		} else {
			outcome = outcome.Add(t.Amount)
		}
	}
	v := *bg
	v.Limit = decimal.NewNullDecimal(bg.Amount)
	v.TotalIncome = decimal.NewNullDecimal(income)
	v.TotalOutcome = decimal.NewNullDecimal(outcome)
	v.Remain = decimal.NewNullDecimal(bg.Amount.Sub(outcome))
	if bg.Amount.IsPositive() {
		v.Progress = outcome.Div(bg.Amount).InexactFloat64()
	}
	return v
}

func (b *Backend) ListBudgets(userID string, page int) (remote.Page[remote.Budget], error) {
	if err := b.enter(remote.MethodListBudgets); err != nil {
		return remote.Page[remote.Budget]{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]remote.Budget, 0, len(b.budgetOrder))
	for _, id := range b.budgetOrder {
		if bg := b.budgets[id]; bg.UserID == userID {
			all = append(all, b.view(bg))
		}
	}
	return paginate(all, page, b.perPage), nil
}

func (b *Backend) CreateBudget(userID string, p remote.BudgetPayload) (remote.Budget, error) {
	if err := b.enter(remote.MethodCreateBudget); err != nil {
		return remote.Budget{}, err
	}
	amount, start, err := b.validBudget(p)
	if err != nil {
		return remote.Budget{}, err
	}
	id, err := newID()
	if err != nil {
		return remote.Budget{}, err
	}
	period := p.Period
	if period == "" {
		period = "single"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.stamp()
	bg := &remote.Budget{
		ID:        id,
		Name:      strings.TrimSpace(p.Name),
		UserID:    userID,
		Amount:    amount,
		StartDate: start,
		Period:    period,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.budgets[id] = bg
	b.budgetOrder = append(b.budgetOrder, id)
	return b.view(bg), nil
}

func (b *Backend) UpdateBudget(userID, id string, p remote.BudgetPayload) (remote.Budget, error) {
	if err := b.enter(remote.MethodUpdateBudget); err != nil {
		return remote.Budget{}, err
	}
	amount, start, err := b.validBudget(p)
	if err != nil {
		return remote.Budget{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bg, ok := b.budgets[id]
	if !ok || bg.UserID != userID {
		return remote.Budget{}, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	bg.Name = strings.TrimSpace(p.Name)
	bg.Amount = amount
	bg.StartDate = start
	if p.Period != "" {
		bg.Period = p.Period
	}
	bg.UpdatedAt = b.stamp()
	return b.view(bg), nil
}

// DeleteBudget removes the budget and its transactions. Deleting an unknown
// id succeeds so a retried delete is harmless.
func (b *Backend) DeleteBudget(userID, id string) error {
	if err := b.enter(remote.MethodDeleteBudget); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	bg, ok := b.budgets[id]
	if !ok {
		return nil
	}
	if bg.UserID != userID {
		return fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	delete(b.budgets, id)
	b.budgetOrder = slices.DeleteFunc(b.budgetOrder, func(s string) bool { return s == id })
	for tid, t := range b.txs {
		if t.BudgetID == id {
			delete(b.txs, tid)
		}
	}
	b.txOrder = slices.DeleteFunc(b.txOrder, func(s string) bool { _, ok := b.txs[s]; return !ok })
	return nil
}

// ---- transactions ----

// validTransaction checks p against the user's budgets. b.mu must be held.
func (b *Backend) validTransaction(userID string, p remote.TransactionPayload) (decimal.Decimal, string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return decimal.Zero, "", invalid("name is required")
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return decimal.Zero, "", err
	}
	if !amount.IsPositive() {
		return decimal.Zero, "", invalid("amount must be positive")
	}
	if !slices.Contains(types, p.Type) {
		return decimal.Zero, "", invalid("unknown type %q", p.Type)
	}
	if strings.TrimSpace(p.Category) == "" {
		return decimal.Zero, "", invalid("category is required")
	}
	if bg, ok := b.budgets[p.BudgetID]; !ok || bg.UserID != userID {
		return decimal.Zero, "", invalid("budget %q does not exist", p.BudgetID)
	}
	at, err := parseWireTime("date_time", p.DateTime)
	if err != nil {
		return decimal.Zero, "", err
	}
	return amount, at, nil
}

func (b *Backend) ListTransactions(userID string, page int, f *remote.TransactionFilter) (remote.Page[remote.Transaction], error) {
	if err := b.enter(remote.MethodListTransactions); err != nil {
		return remote.Page[remote.Transaction]{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]remote.Transaction, 0, len(b.txOrder))
	for _, id := range b.txOrder {
		t := b.txs[id]
		if t.UserID != userID {
			continue
		}
		if f != nil && f.BudgetID != "" && t.BudgetID != f.BudgetID {
			continue
		}
		all = append(all, *t)
	}
	return paginate(all, page, b.perPage), nil
}

func (b *Backend) CreateTransaction(userID string, p remote.TransactionPayload) (remote.Transaction, error) {
	if err := b.enter(remote.MethodCreateTransaction); err != nil {
		return remote.Transaction{}, err
	}
	id, err := newID()
	if err != nil {
		return remote.Transaction{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	amount, at, err := b.validTransaction(userID, p)
	if err != nil {
		return remote.Transaction{}, err
	}
	now := b.stamp()
	t := &remote.Transaction{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fillTransaction(t, p, amount, at)
	b.txs[id] = t
	b.txOrder = append(b.txOrder, id)
	return *t, nil
}

func (b *Backend) UpdateTransaction(userID, id string, p remote.TransactionPayload) (remote.Transaction, error) {
	if err := b.enter(remote.MethodUpdateTransaction); err != nil {
		return remote.Transaction{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.txs[id]
	if !ok || t.UserID != userID {
		return remote.Transaction{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	amount, at, err := b.validTransaction(userID, p)
	if err != nil {
		return remote.Transaction{}, err
	}
	fillTransaction(t, p, amount, at)
	t.UpdatedAt = b.stamp()
	return *t, nil
}

func fillTransaction(t *remote.Transaction, p remote.TransactionPayload, amount decimal.Decimal, at string) {
	t.Name = strings.TrimSpace(p.Name)
	t.BudgetID = p.BudgetID
	t.Type = p.Type
	t.Description = p.Description
	t.Category = strings.ToUpper(p.Category)
	t.Amount = amount
	t.DateTime = at
	t.Image = p.Image
	t.Location = p.Location
}

// DeleteTransaction is idempotent like DeleteBudget.
func (b *Backend) DeleteTransaction(userID, id string) error {
	if err := b.enter(remote.MethodDeleteTransaction); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.txs[id]
	if !ok {
		return nil
	}
	if t.UserID != userID {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	delete(b.txs, id)
	b.txOrder = slices.DeleteFunc(b.txOrder, func(s string) bool { return s == id })
	return nil
}

// ---- uploads ----

// Upload stores data under name. The same name overwrites the stored file.
func (b *Backend) Upload(name string, data []byte) (remote.Attachment, error) {
	if err := b.enter(remote.MethodUploadAttachment); err != nil {
		return remote.Attachment{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return remote.Attachment{}, invalid("bad file name %q", name)
	}
	if len(data) == 0 {
		return remote.Attachment{}, invalid("empty file")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = slices.Clone(data)
	return remote.Attachment{URL: b.fileURL + name}, nil
}

// File returns an uploaded file.
func (b *Backend) File(name string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[name]
	return data, ok
}

// Budgets returns a snapshot of the user's budgets.
func (b *Backend) Budgets(userID string) []remote.Budget {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []remote.Budget{}
	for _, id := range b.budgetOrder {
		if bg := b.budgets[id]; bg.UserID == userID {
			out = append(out, b.view(bg))
		}
	}
	return out
}

// Transactions returns a snapshot of the user's transactions.
func (b *Backend) Transactions(userID string) []remote.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []remote.Transaction{}
	for _, id := range b.txOrder {
		if t := b.txs[id]; t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}
