package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
)

type TransactionService interface {
	List(ctx context.Context, f transactions.Filter) ([]models.Transaction, error)
	Watch(ctx context.Context, f transactions.Filter) (<-chan []models.Transaction, error)
	Get(ctx context.Context, id string) (models.Transaction, error)
	Add(ctx context.Context, t models.Transaction) (models.Transaction, error)
	Update(ctx context.Context, t models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
	// AttachImage records a local file to upload with the next push.
	AttachImage(ctx context.Context, id, path string) error
}

type transactionService struct {
	transactions transactions.Repository
	budgets      budgets.Repository
	trigger      Trigger
	log          logging.Logger
	now          func() time.Time
}

func NewTransactionService(t transactions.Repository, b budgets.Repository, trigger Trigger, log logging.Logger) TransactionService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &transactionService{transactions: t, budgets: b, trigger: trigger, log: log, now: time.Now}
}

func (s *transactionService) validate(ctx context.Context, t models.Transaction) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: transaction name is required", common.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive", common.ErrValidation)
	}
	if t.Type != models.TransactionIncome && t.Type != models.TransactionOutcome {
		return fmt.Errorf("%w: unknown transaction type %q", common.ErrValidation, t.Type)
	}
	if mapper.ParseCategory(string(t.Category)) != t.Category {
		return fmt.Errorf("%w: unknown category %q", common.ErrValidation, t.Category)
	}

	b, err := s.budgets.Get(ctx, t.BudgetID)
	if err != nil || b.IsDeleted {
		return fmt.Errorf("%w: budget %q does not exist", common.ErrValidation, t.BudgetID)
	}
	return nil
}

// imagePath resolves a user supplied attachment path and checks it is a
// regular file.
func imagePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a file", common.ErrValidation, abs)
	}
	return abs, nil
}

func (s *transactionService) toDomain(ctx context.Context, rs []models.TransactionRecord) []models.Transaction {
	out := make([]models.Transaction, 0, len(rs))
	for _, r := range rs {
		t, err := mapper.TransactionToDomain(r)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable transaction", "id", r.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *transactionService) List(ctx context.Context, f transactions.Filter) ([]models.Transaction, error) {
	rs, err := s.transactions.QueryActive(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.toDomain(ctx, rs), nil
}

func (s *transactionService) Watch(ctx context.Context, f transactions.Filter) (<-chan []models.Transaction, error) {
	in, err := s.transactions.Watch(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make(chan []models.Transaction, 1)
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

func (s *transactionService) active(ctx context.Context, id string) (models.TransactionRecord, error) {
	r, err := s.transactions.Get(ctx, id)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	if r.IsDeleted {
		return models.TransactionRecord{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return r, nil
}

func (s *transactionService) Get(ctx context.Context, id string) (models.Transaction, error) {
	r, err := s.active(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	return mapper.TransactionToDomain(r)
}

func (s *transactionService) Add(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := s.validate(ctx, t); err != nil {
		return models.Transaction{}, err
	}
	path, err := imagePath(t.LocalImagePath)
	if err != nil {
		return models.Transaction{}, err
	}

	now := s.now().UTC()
	t.ID = models.NewLocalID()
	t.LocalImagePath = path
	t.CreatedAt, t.UpdatedAt = now, now
	if t.DateTime.IsZero() {
		t.DateTime = now
	}

	if err := s.transactions.Upsert(ctx, mapper.TransactionToRecord(t, models.Dirty())); err != nil {
		return models.Transaction{}, err
	}
	s.log.Debug(ctx, "transaction added", "id", t.ID, "budget_id", t.BudgetID)
	notify(ctx, s.trigger, s.log)
	return t, nil
}

func (s *transactionService) Update(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := s.validate(ctx, t); err != nil {
		return models.Transaction{}, err
	}
	cur, err := s.active(ctx, t.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	if t.LocalImagePath, err = imagePath(t.LocalImagePath); err != nil {
		return models.Transaction{}, err
	}
	if t.LocalImagePath == "" {
		t.LocalImagePath = cur.LocalImagePath
	}
	if t.ImageURL == "" {
		t.ImageURL = cur.ImageURL
	}

	t.UserID = cur.UserID
	if t.CreatedAt, err = mapper.ParseOptionalTime(cur.CreatedAt); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: created_at: %w", t.ID, err)
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.transactions.Update(ctx, mapper.TransactionToRecord(t, models.Dirty())); err != nil {
		return models.Transaction{}, err
	}
	notify(ctx, s.trigger, s.log)
	return t, nil
}

func (s *transactionService) Delete(ctx context.Context, id string) error {
	r, err := s.active(ctx, id)
	if err != nil {
		return err
	}
	if models.IsLocalID(id) {
		return s.transactions.Delete(ctx, id)
	}

	r.SyncState = models.Tombstone()
	if err := s.transactions.Update(ctx, r); err != nil {
		return err
	}
	notify(ctx, s.trigger, s.log)
	return nil
}

func (s *transactionService) AttachImage(ctx context.Context, id, path string) error {
	if path == "" {
		return fmt.Errorf("%w: image path is required", common.ErrValidation)
	}
	r, err := s.active(ctx, id)
	if err != nil {
		return err
	}
	if r.LocalImagePath, err = imagePath(path); err != nil {
		return err
	}
	r.UpdatedAt = mapper.FormatTime(s.now())
	r.SyncState = models.Dirty()

	if err := s.transactions.Update(ctx, r); err != nil {
		return err
	}
	notify(ctx, s.trigger, s.log)
	return nil
}
