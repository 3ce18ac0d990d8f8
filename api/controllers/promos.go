package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/internal/promos"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
)

// PromoList returns the storefront's currently valid promo codes.
func PromoList(catalog *promos.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, catalog.List())
	}
}

// PromoLookup resolves a single code by name.
func PromoLookup(catalog *promos.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := catalog.Lookup(chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, code)
	}
}
