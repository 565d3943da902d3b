package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type BudgetService interface {
	List(ctx context.Context, f budgets.Filter) ([]models.Budget, error)
	// Watch streams the active budgets after every local write until ctx
	// is done.
	Watch(ctx context.Context) (<-chan []models.Budget, error)
	Get(ctx context.Context, id string) (models.Budget, error)
	Add(ctx context.Context, b models.Budget) (models.Budget, error)
	Update(ctx context.Context, b models.Budget) (models.Budget, error)
	// Delete hard-deletes the budget's transactions, then removes the budget
	// or marks it for remote deletion.
	Delete(ctx context.Context, id string) error
	Details(ctx context.Context, id string) (models.BudgetDetails, error)
	DetailsList(ctx context.Context) ([]models.BudgetDetails, error)
}

type budgetService struct {
	budgets      budgets.Repository
	transactions transactions.Repository
	trigger      Trigger
	log          logging.Logger
	now          func() time.Time
}

// NewBudgetService wires the service. trigger and log may be nil.
func NewBudgetService(b budgets.Repository, t transactions.Repository, trigger Trigger, log logging.Logger) BudgetService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &budgetService{budgets: b, transactions: t, trigger: trigger, log: log, now: time.Now}
}

func validateBudget(b models.Budget) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: budget name is required", common.ErrValidation)
	}
	if b.Limit.IsNegative() {
		return fmt.Errorf("%w: budget limit must not be negative", common.ErrValidation)
	}
	for _, p := range models.Periods {
		if b.Period == p {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown budget period %q", common.ErrValidation, b.Period)
}

func (s *budgetService) List(ctx context.Context, f budgets.Filter) ([]models.Budget, error) {
	rs, err := s.budgets.QueryActive(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.toDomain(ctx, rs), nil
}

func (s *budgetService) toDomain(ctx context.Context, rs []models.BudgetRecord) []models.Budget {
	out := make([]models.Budget, 0, len(rs))
	for _, r := range rs {
		b, err := mapper.BudgetToDomain(r)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable budget", "id", r.ID, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out
}

func (s *budgetService) Watch(ctx context.Context) (<-chan []models.Budget, error) {
	in, err := s.budgets.Watch(ctx, budgets.Filter{})
	if err != nil {
		return nil, err
	}
	out := make(chan []models.Budget, 1)
	go func() {
		defer close(out)
		for rs := range in {
			select {
			case out <- s.toDomain(ctx, rs):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// active returns the live record, treating a tombstone as missing.
func (s *budgetService) active(ctx context.Context, id string) (models.BudgetRecord, error) {
	r, err := s.budgets.Get(ctx, id)
	if err != nil {
		return models.BudgetRecord{}, err
	}
	if r.IsDeleted {
		return models.BudgetRecord{}, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	return r, nil
}

func (s *budgetService) Get(ctx context.Context, id string) (models.Budget, error) {
	r, err := s.active(ctx, id)
	if err != nil {
		return models.Budget{}, err
	}
	return mapper.BudgetToDomain(r)
}

func (s *budgetService) Add(ctx context.Context, b models.Budget) (models.Budget, error) {
	if err := validateBudget(b); err != nil {
		return models.Budget{}, err
	}

	now := s.now().UTC()
	b.ID = models.NewLocalID()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.StartDate.IsZero() {
		b.StartDate = now.Truncate(24 * time.Hour)
	}

	if err := s.budgets.Upsert(ctx, mapper.BudgetToRecord(b, models.Dirty())); err != nil {
		return models.Budget{}, err
	}
	s.log.Debug(ctx, "budget added", "id", b.ID)
	notify(ctx, s.trigger, s.log)
	return b, nil
}

func (s *budgetService) Update(ctx context.Context, b models.Budget) (models.Budget, error) {
	if err := validateBudget(b); err != nil {
		return models.Budget{}, err
	}
	cur, err := s.active(ctx, b.ID)
	if err != nil {
		return models.Budget{}, err
	}

	b.UserID = cur.UserID
	if b.CreatedAt, err = mapper.ParseOptionalTime(cur.CreatedAt); err != nil {
		return models.Budget{}, fmt.Errorf("budget %s: created_at: %w", b.ID, err)
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.budgets.Update(ctx, mapper.BudgetToRecord(b, models.Dirty())); err != nil {
		return models.Budget{}, err
	}
	notify(ctx, s.trigger, s.log)
	return b, nil
}

func (s *budgetService) Delete(ctx context.Context, id string) error {
	r, err := s.active(ctx, id)
	if err != nil {
		return err
	}

	n, err := s.transactions.DeleteByBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transactions of budget %s: %w", id, err)
	}

	if models.IsLocalID(id) {
		if err := s.budgets.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Debug(ctx, "unsynced budget removed", "id", id, "transactions", n)
		return nil
	}

	r.SyncState = models.Tombstone()
	if err := s.budgets.Update(ctx, r); err != nil {
		return err
	}
	s.log.Debug(ctx, "budget marked for deletion", "id", id, "transactions", n)
	notify(ctx, s.trigger, s.log)
	return nil
}

func (s *budgetService) Details(ctx context.Context, id string) (models.BudgetDetails, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return models.BudgetDetails{}, err
	}
	return s.details(ctx, b)
}

func (s *budgetService) DetailsList(ctx context.Context) ([]models.BudgetDetails, error) {
	bs, err := s.List(ctx, budgets.Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.BudgetDetails, 0, len(bs))
	for _, b := range bs {
		d, err := s.details(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *budgetService) details(ctx context.Context, b models.Budget) (models.BudgetDetails, error) {
	rs, err := s.transactions.QueryActive(ctx, transactions.Filter{BudgetID: b.ID})
	if err != nil {
		return models.BudgetDetails{}, err
	}

	d := models.BudgetDetails{Budget: b, TransactionCount: len(rs)}
	var errs error
	for _, r := range rs {
		amount, err := mapper.ParseAmount(r.Amount)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("transaction %s: %w", r.ID, err))
			continue
		}
		if mapper.ParseTransactionType(r.Type) == models.TransactionIncome {
			d.TotalIncome = d.TotalIncome.Add(amount)
		} else {
			d.TotalOutcome = d.TotalOutcome.Add(amount)
		}
	}
	if errs != nil {
		s.log.Warn(ctx, "budget details skip unreadable amounts", "id", b.ID, "error", errs)
	}

	d.Remaining = b.Limit.Sub(d.TotalOutcome)
	if b.Limit.IsPositive() {
		d.Progress = d.TotalOutcome.DivRound(b.Limit, 4)
	} else {
		d.Progress = decimal.Zero
	}
	return d, nil
}
