package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	redisclient "github.com/codewithpritom/lms-storefront/pkg/redis"
)

// KV is the synchronous key-value persistence surface backing cart state.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Keyer names the storage slot for an owner's cart.
type Keyer interface {
	CartKey(owner string) string
}

// Store owns per-owner checkout state and its persistence boundary. Every
// mutating operation persists the new state before returning.
type Store struct {
	kv   KV
	keys Keyer
	ttl  time.Duration
	logg *logger.Logger
}

// NewStore builds a cart store backed by the provided key-value client.
func NewStore(kv KV, keys Keyer, ttl time.Duration, logg *logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv client required")
	}
	if keys == nil {
		return nil, fmt.Errorf("keyer required")
	}
	return &Store{kv: kv, keys: keys, ttl: ttl, logg: logg}, nil
}

// CourseDescriptor is the typed replacement for the legacy "object or
// positional args" add entry point.
type CourseDescriptor struct {
	ID    string
	Title string
	Price string
	Image string
}

// Load reads the owner's persisted state. A missing or unparseable record
// falls back to the empty state. Stale records holding more than one item
// (written by a prior multi-item build) are truncated to the first item and
// re-persisted.
func (s *Store) Load(ctx context.Context, owner string) (*State, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	raw, err := s.kv.Get(ctx, s.keys.CartKey(owner))
	if err != nil {
		if redisclient.IsMissing(err) {
			return NewState(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart state")
	}

	state := NewState()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "discarding unparseable cart state")
		}
		return NewState(), nil
	}
	if state.Items == nil {
		state.Items = []Item{}
	}
	if state.Step < StepCart || state.Step > StepConfirmation {
		state.Step = StepCart
	}

	if len(state.Items) > 1 {
		state.Items = state.Items[:1]
		state.bump()
		if err := s.persist(ctx, owner, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// SetItemFromDescriptor replaces the cart contents with the described course.
// Any applied promo is cleared: it was bound to the previous item set.
func (s *Store) SetItemFromDescriptor(ctx context.Context, owner string, desc CourseDescriptor) (*State, error) {
	if strings.TrimSpace(desc.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	price, err := ParsePrice(desc.Price)
	if err != nil {
		return nil, err
	}

	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	image := strings.TrimSpace(desc.Image)
	if image == "" {
		image = defaultItemImage
	}

	state.Items = []Item{{
		ID:    desc.ID,
		Title: desc.Title,
		Price: price,
		Image: image,
	}}
	state.Promo = nil
	state.bump()

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetItemFields is the positional-argument variant of item selection.
func (s *Store) SetItemFields(ctx context.Context, owner, id, title, price, image string) (*State, error) {
	return s.SetItemFromDescriptor(ctx, owner, CourseDescriptor{
		ID:    id,
		Title: title,
		Price: price,
		Image: image,
	})
}

// RemoveItem drops the identified course. An emptied cart returns to step 1.
func (s *Store) RemoveItem(ctx context.Context, owner, id string) (*State, error) {
	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	kept := state.Items[:0]
	for _, item := range state.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	state.Items = kept
	if state.Empty() {
		state.Promo = nil
		state.Step = StepCart
	}
	state.bump()

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear resets the owner's state to the initial empty state. Idempotent.
func (s *Store) Clear(ctx context.Context, owner string) (*State, error) {
	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	revision := state.Revision
	state = NewState()
	state.Revision = revision + 1

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// CompleteOrder empties the cart after a fulfilled submission and lands on
// the confirmation step. Unlike SetStep it is not gated on billing: the
// snapshot has already been consumed by the order.
func (s *Store) CompleteOrder(ctx context.Context, owner string) (*State, error) {
	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	revision := state.Revision
	state = NewState()
	state.Step = StepConfirmation
	state.Revision = revision + 1

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetStep moves the checkout step. Backward movement is unrestricted; moving
// past the billing step requires a complete billing snapshot.
func (s *Store) SetStep(ctx context.Context, owner string, step int) (*State, error) {
	if step < StepCart || step > StepConfirmation {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout step")
	}

	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	if step > state.Step && step > StepBilling && !state.Billing.Complete() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "billing information must be completed first")
	}

	state.Step = step
	state.bump()

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetBilling overwrites the billing snapshot.
func (s *Store) SetBilling(ctx context.Context, owner string, billing Billing) (*State, error) {
	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	state.Billing = billing
	state.bump()

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

// InstallPromo applies a verified promo, but only if the cart has not moved
// since the verification request was issued: a revision mismatch means the
// item set may have changed and the verdict is stale.
func (s *Store) InstallPromo(ctx context.Context, owner string, expectedRevision uint64, promo Promo) (*State, error) {
	if strings.TrimSpace(promo.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if !promo.Discount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo discount must be positive")
	}

	state, err := s.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if state.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no course in cart to apply coupon to")
	}
	if state.Revision != expectedRevision {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed while the coupon was being verified")
	}

	promo.Code = strings.ToUpper(strings.TrimSpace(promo.Code))
	state.Promo = &promo
	state.bump()

	if err := s.persist(ctx, owner, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) persist(ctx context.Context, owner string, state *State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart state")
	}
	if err := s.kv.Set(ctx, s.keys.CartKey(owner), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart state")
	}
	return nil
}
