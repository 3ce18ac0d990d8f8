package promos

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codewithpritom/lms-storefront/internal/cart"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
)

// Status of a catalog code.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Code is a storefront-managed promo code, as opposed to codes verified by
// the external coupon authority.
type Code struct {
	Code       string          `json:"code"`
	Discount   decimal.Decimal `json:"discount"`
	Type       cart.PromoType  `json:"type"`
	ValidUntil time.Time       `json:"valid_until"`
	Status     Status          `json:"status"`
}

// IsValid reports whether the code is active and not expired.
func (c Code) IsValid(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return false
	}
	return true
}

// Catalog is an in-memory set of storefront promo codes.
type Catalog struct {
	codes []Code
	now   func() time.Time
}

// NewCatalog builds a catalog over the given codes.
func NewCatalog(codes []Code) *Catalog {
	return &Catalog{codes: codes, now: time.Now}
}

// DefaultCatalog returns the storefront's built-in codes.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Code{
		{
			Code:       "EWUPCC2026",
			Discount:   decimal.NewFromInt(100),
			Type:       cart.PromoFlat,
			ValidUntil: time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC),
			Status:     StatusActive,
		},
	})
}

// List returns every currently valid code.
func (c *Catalog) List() []Code {
	valid := make([]Code, 0, len(c.codes))
	now := c.now()
	for _, code := range c.codes {
		if code.IsValid(now) {
			valid = append(valid, code)
		}
	}
	return valid
}

// Lookup resolves a code by name. Unknown, inactive and expired codes are all
// reported identically so the lookup does not leak which codes exist.
func (c *Catalog) Lookup(raw string) (*Code, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	now := c.now()
	for _, code := range c.codes {
		if code.Code == name && code.IsValid(now) {
			found := code
			return &found, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Invalid or expired promo code.")
}
