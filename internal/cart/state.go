package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Checkout steps. Forward movement past StepBilling requires a validated
// billing snapshot; backward movement is unrestricted.
const (
	StepCart         = 1
	StepBilling      = 2
	StepPayment      = 3
	StepConfirmation = 4
)

const defaultItemImage = "images/brand.png"

// PromoType distinguishes percentage discounts from fixed-amount ones.
type PromoType string

const (
	PromoPercent PromoType = "percent"
	PromoFlat    PromoType = "flat"
)

// Item is the single course held as pending purchase.
type Item struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Promo is a discount applied to the cart's course. It is bound to the item
// set: any item change clears it.
type Promo struct {
	Code     string          `json:"code"`
	Type     PromoType       `json:"type"`
	Discount decimal.Decimal `json:"discount"`
}

// Billing is the buyer contact snapshot captured after billing validation.
type Billing struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// Complete reports whether every billing field is populated.
func (b Billing) Complete() bool {
	return strings.TrimSpace(b.Name) != "" &&
		strings.TrimSpace(b.Email) != "" &&
		strings.TrimSpace(b.Phone) != "" &&
		strings.TrimSpace(b.Address) != ""
}

// State is the full per-owner checkout state. Revision increments on every
// mutation and serves as the staleness token for in-flight promo
// verifications.
type State struct {
	Items    []Item  `json:"items"`
	Promo    *Promo  `json:"promo,omitempty"`
	Step     int     `json:"step"`
	Billing  Billing `json:"billing"`
	Revision uint64  `json:"revision"`
}

// NewState returns the empty checkout state at step 1.
func NewState() *State {
	return &State{Items: []Item{}, Step: StepCart}
}

// Empty reports whether no course is selected.
func (s *State) Empty() bool {
	return s == nil || len(s.Items) == 0
}

// CourseID returns the selected course id, or "" for an empty cart.
func (s *State) CourseID() string {
	if s.Empty() {
		return ""
	}
	return s.Items[0].ID
}

// Subtotal sums the item prices.
func (s *State) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	if s == nil {
		return sum
	}
	for _, item := range s.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// DiscountAmount computes the promo's value against the current subtotal. A
// percent promo yields subtotal*discount/100; a flat promo yields its amount
// unchanged (the Total clamp keeps it from driving the order negative).
func (s *State) DiscountAmount() decimal.Decimal {
	if s == nil || s.Promo == nil {
		return decimal.Zero
	}
	if s.Promo.Type == PromoPercent {
		return s.Subtotal().Mul(s.Promo.Discount).Div(decimal.NewFromInt(100))
	}
	return s.Promo.Discount
}

// Total is the amount due: subtotal minus discount, clamped at zero.
func (s *State) Total() decimal.Decimal {
	total := s.Subtotal().Sub(s.DiscountAmount())
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Free reports whether the order costs nothing after discounts.
func (s *State) Free() bool {
	return s.Total().IsZero()
}

func (s *State) bump() {
	s.Revision++
}
