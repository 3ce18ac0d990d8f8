package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",               // local dev
	"http://localhost:5173",               // vite dev server
	"https://codewithpritom.com",          // storefront
	"https://www.codewithpritom.com",      // storefront www
	"https://cwp-storefront.onrender.com", // render deployment
}

// CORS returns middleware that applies the storefront's allowed origin policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Cart-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Cart-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
