package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is where a transaction happened.
type Location struct {
	Name string
	Lat  float64
	Lng  float64
}

// Transaction is the domain view of a transaction.
type Transaction struct {
	ID          string
	UserID      string
	BudgetID    string
	Name        string
	Description string
	Type        TransactionType
	Category    Category
	Amount      decimal.Decimal
	DateTime    time.Time
	// ImageURL is the remote reference of an uploaded attachment.
	ImageURL string
	// LocalImagePath is a file waiting to be uploaded on the next push.
	LocalImagePath string
	Location       *Location
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionRecord is a transaction row as persisted by the local store.
type TransactionRecord struct {
	ID             string
	UserID         string
	BudgetID       string
	Name           string
	Description    string
	Type           string
	Category       string
	Amount         string
	DateTime       string
	ImageURL       string
	LocalImagePath string
	LocationName   string
	LocationLat    *float64
	LocationLng    *float64
	CreatedAt      string
	UpdatedAt      string
	SyncState
}

// HasPendingAttachment reports whether a local file still has to be uploaded.
func (r TransactionRecord) HasPendingAttachment() bool {
	return r.LocalImagePath != ""
}

// Same reports whether both records hold the same content and sync flags.
// Coordinates are compared by value.
func (r TransactionRecord) Same(o TransactionRecord) bool {
	if !sameCoord(r.LocationLat, o.LocationLat) || !sameCoord(r.LocationLng, o.LocationLng) {
		return false
	}
	r.LocationLat, r.LocationLng = nil, nil
	o.LocationLat, o.LocationLng = nil, nil
	return r == o
}

func sameCoord(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
