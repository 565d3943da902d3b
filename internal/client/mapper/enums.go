package mapper

import (
	"strings"

	"github.com/dmitrijs2005/finnysync/internal/client/models"
)

// ParseCategory upper-cases s; unknown values map to CategoryOther.
func ParseCategory(s string) models.Category {
	c := models.Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range models.Categories {
		if c == known {
			return c
		}
	}
	return models.CategoryOther
}

// ParseTransactionType upper-cases s; unknown values map to outcome.
func ParseTransactionType(s string) models.TransactionType {
	switch t := models.TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case models.TransactionIncome, models.TransactionOutcome:
		return t
	default:
		return models.TransactionOutcome
	}
}

// ParsePeriod lower-cases s; unknown values map to a single-use budget.
func ParsePeriod(s string) models.BudgetPeriod {
	p := models.BudgetPeriod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range models.Periods {
		if p == known {
			return p
		}
	}
	return models.PeriodSingle
}
