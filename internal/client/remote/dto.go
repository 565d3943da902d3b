package remote

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Envelope wraps every HTTP response body.
type Envelope[T any] struct {
	Status  int    `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// Pagination describes the position of a list page.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// HasNext reports whether another page follows this one.
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.LastPage
}

// Page is one page of a list call.
type Page[T any] struct {
	Items      []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Budget is the wire form of a budget.
type Budget struct {
	ID            string              `json:"_id"`
	Name          string              `json:"name"`
	UserID        string              `json:"user_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Limit         decimal.NullDecimal `json:"limit"`
	Remain        decimal.NullDecimal `json:"remain"`
	StartDate     string              `json:"start_date"`
	Period        string              `json:"period"`
	DaysRemaining int                 `json:"days_remaining,omitempty"`
	Progress      float64             `json:"progress,omitempty"`
	TotalIncome   decimal.NullDecimal `json:"total_income"`
	TotalOutcome  decimal.NullDecimal `json:"total_outcome"`
	CreatedAt     string              `json:"created_at,omitempty"`
	UpdatedAt     string              `json:"updated_at,omitempty"`
}

// BudgetPayload is the create/update request body of a budget.
type BudgetPayload struct {
	Name      string      `json:"name"`
	Amount    json.Number `json:"amount"`
	StartDate string      `json:"start_date"`
	Period    string      `json:"period"`
}

// Location is the wire form of a transaction location.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Transaction is the wire form of a transaction.
type Transaction struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	BudgetID    string          `json:"budget_id"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	DateTime    string          `json:"date_time"`
	Image       string          `json:"image,omitempty"`
	Location    *Location       `json:"location,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// TransactionPayload is the create/update request body of a transaction.
type TransactionPayload struct {
	Name        string      `json:"name"`
	BudgetID    string      `json:"budget_id"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
	DateTime    string      `json:"date_time"`
	Image       string      `json:"image,omitempty"`
	Location    *Location   `json:"location,omitempty"`
}

// TransactionFilter narrows a transaction list call.
type TransactionFilter struct {
	BudgetID string `json:"budget_id,omitempty"`
}

// TransactionListRequest is the body of the transaction list call.
type TransactionListRequest struct {
	Page   int                `json:"page"`
	Filter *TransactionFilter `json:"filter,omitempty"`
}

// Attachment is the result of an upload.
type Attachment struct {
	URL string `json:"image_url"`
}

// AttachmentUpload is the gRPC form of an upload request. Content travels
// base64 encoded inside the Struct payload.
type AttachmentUpload struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// Tokens is the access/refresh credential pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest is the body of the token refresh call.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
