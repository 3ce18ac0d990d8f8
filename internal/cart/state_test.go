package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPricingPercentDiscount(t *testing.T) {
	t.Parallel()

	state := NewState()
	state.Items = []Item{{ID: "c1", Price: decimal.NewFromInt(500)}}
	state.Promo = &Promo{Code: "SAVE10", Type: PromoPercent, Discount: decimal.NewFromInt(10)}

	if got := state.DiscountAmount(); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected discount 50, got %s", got)
	}
	if got := state.Total(); !got.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("expected total 450, got %s", got)
	}
}

func TestPricingHundredPercentIsFree(t *testing.T) {
	t.Parallel()

	state := NewState()
	state.Items = []Item{{ID: "c1", Price: decimal.NewFromInt(1000)}}
	state.Promo = &Promo{Code: "FREEPASS", Type: PromoPercent, Discount: decimal.NewFromInt(100)}

	if got := state.Total(); !got.IsZero() {
		t.Fatalf("expected zero total, got %s", got)
	}
	if !state.Free() {
		t.Fatal("expected Free() with 100%% promo")
	}
}

func TestPricingFlatDiscountNeverNegative(t *testing.T) {
	t.Parallel()

	state := NewState()
	state.Items = []Item{{ID: "c1", Price: decimal.NewFromInt(300)}}
	state.Promo = &Promo{Code: "BIGFLAT", Type: PromoFlat, Discount: decimal.NewFromInt(500)}

	if got := state.Total(); !got.IsZero() {
		t.Fatalf("flat discount above subtotal must clamp to zero, got %s", got)
	}
}

func TestPricingEmptyCart(t *testing.T) {
	t.Parallel()

	state := NewState()
	if !state.Subtotal().IsZero() || !state.Total().IsZero() {
		t.Fatal("empty cart should price at zero")
	}
	if !state.DiscountAmount().IsZero() {
		t.Fatal("no promo means no discount")
	}
}

func TestBillingComplete(t *testing.T) {
	t.Parallel()

	billing := Billing{Name: "Buyer", Email: "b@example.com", Phone: "0185", Address: "Dhaka"}
	if !billing.Complete() {
		t.Fatal("expected complete billing")
	}

	billing.Address = "   "
	if billing.Complete() {
		t.Fatal("blank address should not count as complete")
	}
}
