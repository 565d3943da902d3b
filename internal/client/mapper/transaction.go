package mapper

import (
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
)

// TransactionFromWire materializes a pulled transaction as a synced record.
func TransactionFromWire(w remote.Transaction) (models.TransactionRecord, error) {
	if w.ID == "" {
		return models.TransactionRecord{}, fmt.Errorf("transaction %q: %w", w.Name, ErrMissingID)
	}

	r := models.TransactionRecord{
		ID:          w.ID,
		UserID:      w.UserID,
		BudgetID:    w.BudgetID,
		Name:        w.Name,
		Description: w.Description,
		Type:        string(ParseTransactionType(w.Type)),
		Category:    string(ParseCategory(w.Category)),
		Amount:      formatMoney(w.Amount),
		ImageURL:    w.Image,
		SyncState:   models.Synced(),
	}
	if w.Location != nil {
		lat, lng := w.Location.Lat, w.Location.Lng
		r.LocationName = w.Location.Name
		r.LocationLat = &lat
		r.LocationLng = &lng
	}

	var err error
	if r.DateTime, err = normalizeTime("date_time", w.DateTime, true); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}
	if r.CreatedAt, err = normalizeTime("created_at", w.CreatedAt, false); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}
	if r.UpdatedAt, err = normalizeTime("updated_at", w.UpdatedAt, false); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}
	return r, nil
}

// TransactionToDomain reads a stored record.
func TransactionToDomain(r models.TransactionRecord) (models.Transaction, error) {
	t := models.Transaction{
		ID:             r.ID,
		UserID:         r.UserID,
		BudgetID:       r.BudgetID,
		Name:           r.Name,
		Description:    r.Description,
		Type:           ParseTransactionType(r.Type),
		Category:       ParseCategory(r.Category),
		ImageURL:       r.ImageURL,
		LocalImagePath: r.LocalImagePath,
	}
	if r.LocationLat != nil && r.LocationLng != nil {
		t.Location = &models.Location{Name: r.LocationName, Lat: *r.LocationLat, Lng: *r.LocationLng}
	}

	var err error
	if t.Amount, err = parseMoney("amount", r.Amount); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	if t.DateTime, err = ParseTime(r.DateTime); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: date_time: %w", r.ID, err)
	}
	if t.CreatedAt, err = ParseOptionalTime(r.CreatedAt); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: created_at: %w", r.ID, err)
	}
	if t.UpdatedAt, err = ParseOptionalTime(r.UpdatedAt); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: updated_at: %w", r.ID, err)
	}
	return t, nil
}

// TransactionToRecord stores a domain transaction with the given sync state.
func TransactionToRecord(t models.Transaction, s models.SyncState) models.TransactionRecord {
	r := models.TransactionRecord{
		ID:             t.ID,
		UserID:         t.UserID,
		BudgetID:       t.BudgetID,
		Name:           t.Name,
		Description:    t.Description,
		Type:           string(t.Type),
		Category:       string(t.Category),
		Amount:         formatMoney(t.Amount),
		DateTime:       FormatTime(t.DateTime),
		ImageURL:       t.ImageURL,
		LocalImagePath: t.LocalImagePath,
		CreatedAt:      FormatTime(t.CreatedAt),
		UpdatedAt:      FormatTime(t.UpdatedAt),
		SyncState:      s.Normalize(),
	}
	if t.Location != nil {
		lat, lng := t.Location.Lat, t.Location.Lng
		r.LocationName = t.Location.Name
		r.LocationLat = &lat
		r.LocationLng = &lng
	}
	return r
}

// TransactionToPayload builds the create/update request body.
func TransactionToPayload(t models.Transaction) remote.TransactionPayload {
	p := remote.TransactionPayload{
		Name:        t.Name,
		BudgetID:    t.BudgetID,
		Type:        string(t.Type),
		Description: t.Description,
		Category:    string(t.Category),
		Amount:      wireMoney(t.Amount),
		DateTime:    FormatWireTime(t.DateTime),
		Image:       t.ImageURL,
	}
	if t.Location != nil {
		p.Location = &remote.Location{Name: t.Location.Name, Lat: t.Location.Lat, Lng: t.Location.Lng}
	}
	return p
}

// TransactionRecordToPayload is TransactionToDomain followed by
// TransactionToPayload.
func TransactionRecordToPayload(r models.TransactionRecord) (remote.TransactionPayload, error) {
	t, err := TransactionToDomain(r)
	if err != nil {
		return remote.TransactionPayload{}, err
	}
	return TransactionToPayload(t), nil
}
