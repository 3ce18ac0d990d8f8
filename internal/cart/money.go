package cart

import (
	"strings"

	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

// currencyMarkers are the price decorations accepted by ParsePrice, longest
// first so "Taka" is stripped before "TK".
var currencyMarkers = []string{"Taka", "TK", "৳", "$"}

// ParsePrice normalizes a displayed price string into a money value. It
// accepts a plain decimal number optionally wrapped in one of the recognized
// currency markers ("$100", "৳99.50", "TK 500", "1000 Taka"). Anything else,
// including negative amounts, is rejected.
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}

	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price has no numeric value")
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unrecognized price format")
	}
	if value.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return value, nil
}
