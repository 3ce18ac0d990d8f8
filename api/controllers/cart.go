package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codewithpritom/lms-storefront/api/middleware"
	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/api/validators"
	"github.com/codewithpritom/lms-storefront/internal/cart"
	pkgerrors "github.com/codewithpritom/lms-storefront/pkg/errors"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
)

type cartItemRequest struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
	Price string `json:"price" validate:"required"`
	Image string `json:"image"`
}

// cartView is the wire shape of the checkout state.
type cartView struct {
	Items    []cart.Item   `json:"items"`
	Promo    *cartPromo    `json:"promo,omitempty"`
	Step     int           `json:"step"`
	Billing  *cart.Billing `json:"billing,omitempty"`
	Subtotal string        `json:"subtotal"`
	Discount string        `json:"discount"`
	Total    string        `json:"total"`
	Free     bool          `json:"free"`
	Revision uint64        `json:"revision"`
}

type cartPromo struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Discount string `json:"discount"`
}

func newCartView(state *cart.State) cartView {
	view := cartView{
		Items:    state.Items,
		Step:     state.Step,
		Subtotal: state.Subtotal().String(),
		Discount: state.DiscountAmount().String(),
		Total:    state.Total().String(),
		Free:     state.Free(),
		Revision: state.Revision,
	}
	if state.Promo != nil {
		view.Promo = &cartPromo{
			Code:     state.Promo.Code,
			Type:     string(state.Promo.Type),
			Discount: state.Promo.Discount.String(),
		}
	}
	if state.Billing.Complete() {
		billing := state.Billing
		view.Billing = &billing
	}
	return view
}

// CartFetch returns the owner's current cart.
func CartFetch(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := store.Load(r.Context(), middleware.OwnerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CartSetItem replaces the cart contents with the posted course.
func CartSetItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := store.SetItemFromDescriptor(r.Context(), middleware.OwnerFromContext(r.Context()), cart.CourseDescriptor{
			ID:    payload.ID,
			Title: payload.Title,
			Price: payload.Price,
			Image: payload.Image,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CartRemoveItem drops the identified course from the cart.
func CartRemoveItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemID")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id is required"))
			return
		}

		state, err := store.RemoveItem(r.Context(), middleware.OwnerFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CartClear resets the owner's cart.
func CartClear(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := store.Clear(r.Context(), middleware.OwnerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}
