package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codewithpritom/lms-storefront/api/controllers"
	"github.com/codewithpritom/lms-storefront/api/middleware"
	"github.com/codewithpritom/lms-storefront/internal/cart"
	"github.com/codewithpritom/lms-storefront/internal/checkout"
	"github.com/codewithpritom/lms-storefront/internal/promos"
	"github.com/codewithpritom/lms-storefront/internal/session"
	"github.com/codewithpritom/lms-storefront/pkg/config"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	redisclient "github.com/codewithpritom/lms-storefront/pkg/redis"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

// NewRouter wires the storefront's HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	cache redisclient.Pinger,
	cartStore *cart.Store,
	checkoutService checkout.Service,
	sessions *session.Manager,
	authority *webhook.Client,
	catalog *promos.Catalog,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg, cache))

		r.Post("/auth", controllers.Auth(authority, sessions, logg))
		r.Post("/verify-payment", controllers.VerifyPayment(authority, logg))

		r.Get("/promo-codes", controllers.PromoList(catalog, logg))
		r.Get("/promo-codes/{code}", controllers.PromoLookup(catalog, logg))

		r.Get("/handnotes/{filename}", controllers.Handnote(cfg.Handnotes.Dir, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveOwner(sessions, logg))

			r.Post("/auth/logout", controllers.Logout(sessions, logg))
			r.Get("/auth/me", controllers.Me(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartStore, logg))
				r.Delete("/", controllers.CartClear(cartStore, logg))
				r.Post("/items", controllers.CartSetItem(cartStore, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartStore, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/open", controllers.CheckoutOpen(checkoutService, logg))
				r.Post("/step", controllers.CheckoutSetStep(checkoutService, logg))
				r.Post("/billing", controllers.CheckoutSubmitBilling(checkoutService, logg))
				r.Post("/promo", controllers.CheckoutApplyPromo(checkoutService, logg))
				r.Post("/submit", controllers.CheckoutSubmitOrder(checkoutService, logg))
			})
		})
	})

	return r
}
