package mapper

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
)

// ErrMissingID is returned for wire records without an identifier.
var ErrMissingID = errors.New("record has no id")

// BudgetFromWire materializes a pulled budget as a synced record.
func BudgetFromWire(w remote.Budget) (models.BudgetRecord, error) {
	if w.ID == "" {
		return models.BudgetRecord{}, fmt.Errorf("budget %q: %w", w.Name, ErrMissingID)
	}

	limit := w.Amount
	if w.Limit.Valid {
		limit = w.Limit.Decimal
	}

	r := models.BudgetRecord{
		ID:        w.ID,
		UserID:    w.UserID,
		Name:      w.Name,
		Limit:     formatMoney(limit),
		Period:    string(ParsePeriod(w.Period)),
		SyncState: models.Synced(),
	}

	var err error
	if r.StartDate, err = normalizeTime("start_date", w.StartDate, false); err != nil {
		return models.BudgetRecord{}, fmt.Errorf("budget %s: %w", w.ID, err)
	}
	if r.CreatedAt, err = normalizeTime("created_at", w.CreatedAt, false); err != nil {
		return models.BudgetRecord{}, fmt.Errorf("budget %s: %w", w.ID, err)
	}
	if r.UpdatedAt, err = normalizeTime("updated_at", w.UpdatedAt, false); err != nil {
		return models.BudgetRecord{}, fmt.Errorf("budget %s: %w", w.ID, err)
	}
	return r, nil
}

// BudgetToDomain reads a stored record.
func BudgetToDomain(r models.BudgetRecord) (models.Budget, error) {
	b := models.Budget{
		ID:     r.ID,
		UserID: r.UserID,
		Name:   r.Name,
		Period: ParsePeriod(r.Period),
	}

	var err error
	if b.Limit, err = parseMoney("limit", r.Limit); err != nil {
		return models.Budget{}, fmt.Errorf("budget %s: %w", r.ID, err)
	}
	if b.StartDate, err = ParseOptionalTime(r.StartDate); err != nil {
		return models.Budget{}, fmt.Errorf("budget %s: start_date: %w", r.ID, err)
	}
	if b.CreatedAt, err = ParseOptionalTime(r.CreatedAt); err != nil {
		return models.Budget{}, fmt.Errorf("budget %s: created_at: %w", r.ID, err)
	}
	if b.UpdatedAt, err = ParseOptionalTime(r.UpdatedAt); err != nil {
		return models.Budget{}, fmt.Errorf("budget %s: updated_at: %w", r.ID, err)
	}
	return b, nil
}

// BudgetToRecord stores a domain budget with the given sync state.
func BudgetToRecord(b models.Budget, s models.SyncState) models.BudgetRecord {
	return models.BudgetRecord{
		ID:        b.ID,
		UserID:    b.UserID,
		Name:      b.Name,
		Limit:     formatMoney(b.Limit),
		Period:    string(b.Period),
		StartDate: FormatTime(b.StartDate),
		CreatedAt: FormatTime(b.CreatedAt),
		UpdatedAt: FormatTime(b.UpdatedAt),
		SyncState: s.Normalize(),
	}
}

// BudgetToPayload builds the create/update request body.
func BudgetToPayload(b models.Budget) remote.BudgetPayload {
	return remote.BudgetPayload{
		Name:      b.Name,
		Amount:    wireMoney(b.Limit),
		StartDate: FormatWireTime(b.StartDate),
		Period:    string(b.Period),
	}
}

// BudgetRecordToPayload is BudgetToDomain followed by BudgetToPayload.
func BudgetRecordToPayload(r models.BudgetRecord) (remote.BudgetPayload, error) {
	b, err := BudgetToDomain(r)
	if err != nil {
		return remote.BudgetPayload{}, err
	}
	return BudgetToPayload(b), nil
}
