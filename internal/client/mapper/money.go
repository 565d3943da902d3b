package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// parseMoney reads a stored amount; "" is zero.
func parseMoney(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", field, s, err)
	}
	return d, nil
}

// ParseAmount parses user input such as "12.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	return parseMoney("amount", s)
}

func formatMoney(d decimal.Decimal) string {
	return d.String()
}

func wireMoney(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
