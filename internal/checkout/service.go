package checkout

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/codewithpritom/lms-storefront/internal/cart"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

const (
	invalidPromoMessage = "Invalid or expired promo code"
	retryPromoMessage   = "Could not verify the promo code. Please try again."
	retrySubmitMessage  = "Could not submit the order. Please try again."
)

const defaultLockTTL = 30 * time.Second

// CouponAuthority verifies promo codes against the external automation
// backend.
type CouponAuthority interface {
	VerifyCoupon(ctx context.Context, code, courseID string) (*webhook.CouponResult, error)
}

// OrderSubmitter fulfills orders through the external automation backend:
// immediate enrollment for free orders, a pending manual-verification record
// for paid ones.
type OrderSubmitter interface {
	GrantFreeAccess(ctx context.Context, email, courseID string) error
	SubmitPayment(ctx context.Context, submission webhook.PaymentSubmission) error
}

// SessionAccessor resolves the signed-in user's email for an owner key, if
// any. A missing session is not an error; it returns the empty string.
type SessionAccessor interface {
	Email(ctx context.Context, owner string) (string, error)
}

type submitLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SubmitLockKey(owner string) string
}

// Service drives the step-gated checkout flow on top of the cart store.
type Service interface {
	OpenCheckout(ctx context.Context, owner string) (*cart.State, error)
	SubmitBilling(ctx context.Context, owner string, billing cart.Billing) (*cart.State, error)
	SetStep(ctx context.Context, owner string, step int) (*cart.State, error)
	ApplyPromo(ctx context.Context, owner, code string) (*PromoOutcome, error)
	SubmitOrder(ctx context.Context, owner string, input SubmitInput) (*SubmitOutcome, error)
}

type service struct {
	store    *cart.Store
	coupons  CouponAuthority
	orders   OrderSubmitter
	sessions SessionAccessor
	locks    submitLocker
	lockTTL  time.Duration
	validate *validator.Validate
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	store *cart.Store,
	coupons CouponAuthority,
	orders OrderSubmitter,
	sessions SessionAccessor,
	locks submitLocker,
	lockTTL time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon authority required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order submitter required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session accessor required")
	}
	if locks == nil {
		return nil, fmt.Errorf("submit locker required")
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &service{
		store:    store,
		coupons:  coupons,
		orders:   orders,
		sessions: sessions,
		locks:    locks,
		lockTTL:  lockTTL,
		validate: newValidator(),
		logg:     logg,
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// OpenCheckout moves the owner from the cart view into the billing step. An
// empty cart cannot enter checkout.
func (s *service) OpenCheckout(ctx context.Context, owner string) (*cart.State, error) {
	state, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	return s.store.SetStep(ctx, owner, cart.StepBilling)
}

// SubmitBilling validates the billing snapshot and advances to the payment
// step. Validation failure mutates nothing and reports a mark per offending
// field.
func (s *service) SubmitBilling(ctx context.Context, owner string, billing cart.Billing) (*cart.State, error) {
	if err := s.validate.Struct(billing); err != nil {
		return nil, formatFieldErrors(err)
	}

	state, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}

	if _, err := s.store.SetBilling(ctx, owner, billing); err != nil {
		return nil, err
	}
	return s.store.SetStep(ctx, owner, cart.StepPayment)
}

// SetStep exposes raw step navigation. The store enforces the billing gate.
func (s *service) SetStep(ctx context.Context, owner string, step int) (*cart.State, error) {
	return s.store.SetStep(ctx, owner, step)
}

func formatFieldErrors(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fieldErr := range errs {
		switch fieldErr.Tag() {
		case "required":
			details[fieldErr.Field()] = "is required"
		case "email":
			details[fieldErr.Field()] = "must be a valid email"
		default:
			details[fieldErr.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// PromoOutcome is a successful promo application: the new state plus the
// display label for the discount ("FREE" at 100 percent).
type PromoOutcome struct {
	State         *cart.State
	DiscountLabel string
}

// ApplyPromo verifies a code against the coupon authority and installs the
// resulting percent discount. The cart revision is captured before the
// network call; if the cart moves while verification is in flight the verdict
// is discarded.
func (s *service) ApplyPromo(ctx context.Context, owner, code string) (*PromoOutcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please enter a promo code")
	}

	state, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no course in cart to apply coupon to")
	}
	revision := state.Revision
	courseID := state.CourseID()

	verdict, err := s.coupons.VerifyCoupon(ctx, code, courseID)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "coupon verification failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, retryPromoMessage)
	}

	discount := decimal.Zero
	if verdict.DiscountPercent != nil {
		discount = decimal.NewFromFloat(float64(*verdict.DiscountPercent))
	}
	if !verdict.Valid || !discount.IsPositive() {
		message := strings.TrimSpace(verdict.Message)
		if message == "" {
			message = invalidPromoMessage
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, message)
	}

	next, err := s.store.InstallPromo(ctx, owner, revision, cart.Promo{
		Code:     code,
		Type:     cart.PromoPercent,
		Discount: discount,
	})
	if err != nil {
		return nil, err
	}

	label := discount.String() + "%"
	if discount.Equal(decimal.NewFromInt(100)) {
		label = "FREE"
	}
	return &PromoOutcome{State: next, DiscountLabel: label}, nil
}

// SubmitInput carries the buyer-supplied submission fields. Email is a
// fallback for free orders when no billing snapshot or session exists;
// TransactionID is the bKash payment reference required for paid orders.
type SubmitInput struct {
	Email         string `json:"email"`
	TransactionID string `json:"transaction_id"`
}

// SubmitOutcome reports a completed submission.
type SubmitOutcome struct {
	State       *cart.State
	Free        bool
	RedirectTo  string
	PendingNote string
}

// SubmitOrder finalizes the checkout. It holds a short per-owner lock so two
// concurrent submissions cannot both fulfill the same cart.
func (s *service) SubmitOrder(ctx context.Context, owner string, input SubmitInput) (*SubmitOutcome, error) {
	lockKey := s.locks.SubmitLockKey(owner)
	acquired, err := s.locks.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submit lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "an order submission is already in progress")
	}
	defer func() {
		if delErr := s.locks.Del(context.WithoutCancel(ctx), lockKey); delErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "release submit lock: "+delErr.Error())
		}
	}()

	state, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}

	if state.Free() {
		return s.submitFree(ctx, owner, state, input)
	}
	return s.submitPaid(ctx, owner, state, input)
}

func (s *service) submitFree(ctx context.Context, owner string, state *cart.State, input SubmitInput) (*SubmitOutcome, error) {
	email, err := s.resolveEmail(ctx, owner, state, input)
	if err != nil {
		return nil, err
	}

	var grantErr error
	for _, item := range state.Items {
		if err := s.orders.GrantFreeAccess(ctx, email, item.ID); err != nil {
			grantErr = multierr.Append(grantErr, fmt.Errorf("grant %s: %w", item.ID, err))
		}
	}
	if grantErr != nil {
		// Cart stays intact so the buyer can retry the failed grants.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, grantErr, "some enrollments could not be completed")
	}

	redirect := state.CourseID()
	cleared, err := s.finishOrder(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &SubmitOutcome{State: cleared, Free: true, RedirectTo: redirect}, nil
}

func (s *service) submitPaid(ctx context.Context, owner string, state *cart.State, input SubmitInput) (*SubmitOutcome, error) {
	transactionID := strings.TrimSpace(input.TransactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	email, err := s.resolveEmail(ctx, owner, state, input)
	if err != nil {
		return nil, err
	}

	courseIDs := make([]string, 0, len(state.Items))
	items := make([]webhook.PaymentItem, 0, len(state.Items))
	for _, item := range state.Items {
		courseIDs = append(courseIDs, item.ID)
		items = append(items, webhook.PaymentItem{
			ID:    item.ID,
			Title: item.Title,
			Price: item.Price.String(),
		})
	}
	promoCode := ""
	if state.Promo != nil {
		promoCode = state.Promo.Code
	}

	submission := webhook.PaymentSubmission{
		Email:         email,
		Name:          state.Billing.Name,
		CourseID:      strings.Join(courseIDs, ","),
		TransactionID: transactionID,
		Amount:        state.Total().String(),
		PromoCode:     promoCode,
		Items:         items,
	}

	// The cart is cleared only once the upstream accepted the record; a
	// failed hand-off must leave the order resubmittable.
	if err := s.orders.SubmitPayment(ctx, submission); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "payment submission failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, retrySubmitMessage)
	}

	cleared, err := s.finishOrder(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &SubmitOutcome{
		State:       cleared,
		PendingNote: "Your payment is being verified. Access will be granted shortly.",
	}, nil
}

// resolveEmail picks the enrollment email: billing snapshot first, then the
// request input, then the signed-in session.
func (s *service) resolveEmail(ctx context.Context, owner string, state *cart.State, input SubmitInput) (string, error) {
	if email := strings.TrimSpace(state.Billing.Email); email != "" {
		return email, nil
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		return email, nil
	}
	email, err := s.sessions.Email(ctx, owner)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(email) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "an email address is required to complete the order")
	}
	return email, nil
}

func (s *service) finishOrder(ctx context.Context, owner string) (*cart.State, error) {
	return s.store.CompleteOrder(ctx, owner)
}
