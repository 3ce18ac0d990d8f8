package controllers

import (
	"net/http"

	"github.com/codewithpritom/lms-storefront/api/middleware"
	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/api/validators"
	"github.com/codewithpritom/lms-storefront/internal/cart"
	"github.com/codewithpritom/lms-storefront/internal/checkout"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
)

type billingRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

type stepRequest struct {
	Step int `json:"step" validate:"required,min=1,max=4"`
}

type promoRequest struct {
	Code string `json:"code" validate:"required"`
}

type submitRequest struct {
	Email         string `json:"email" validate:"omitempty,email"`
	TransactionID string `json:"transaction_id"`
}

// CheckoutOpen enters the checkout flow.
func CheckoutOpen(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.OpenCheckout(r.Context(), middleware.OwnerFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CheckoutSetStep navigates between checkout steps.
func CheckoutSetStep(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload stepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SetStep(r.Context(), middleware.OwnerFromContext(r.Context()), payload.Step)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CheckoutSubmitBilling validates and snapshots the billing form.
func CheckoutSubmitBilling(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload billingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SubmitBilling(r.Context(), middleware.OwnerFromContext(r.Context()), cart.Billing{
			Name:    payload.Name,
			Email:   payload.Email,
			Phone:   payload.Phone,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(state))
	}
}

// CheckoutApplyPromo verifies and applies a promo code.
func CheckoutApplyPromo(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload promoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ApplyPromo(r.Context(), middleware.OwnerFromContext(r.Context()), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cart":           newCartView(outcome.State),
			"discount_label": outcome.DiscountLabel,
		})
	}
}

// CheckoutSubmitOrder finalizes the order.
func CheckoutSubmitOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.SubmitOrder(r.Context(), middleware.OwnerFromContext(r.Context()), checkout.SubmitInput{
			Email:         payload.Email,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := map[string]any{
			"cart": newCartView(outcome.State),
			"free": outcome.Free,
		}
		if outcome.RedirectTo != "" {
			body["redirect_to"] = outcome.RedirectTo
		}
		if outcome.PendingNote != "" {
			body["pending_note"] = outcome.PendingNote
		}
		responses.WriteSuccess(w, body)
	}
}
