/**
 * @description
 * This file sets up the HTTP router for the degicredit backend. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * necessary middleware for logging, recovery, CORS and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for chi.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the marketplace API.
func Routes(h *ProductHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Authenticated user-facing endpoints.
	r.Route("/api/user", func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/products", h.CreateProductHandler)
		r.Get("/products", h.ListProductsHandler)
		r.Get("/products/types", h.ListProductTypesHandler)
		r.Get("/market", h.ListMarketProductsHandler)

		r.Put("/products/{id}/seller/kyc", h.SubmitSellerKYCHandler)
		r.Put("/products/{id}/seller/kyc/payment", h.RegisterSellerPaymentHandler)
		r.Put("/products/{id}/buyer", h.AddBuyerHandler)
		r.Get("/products/{id}/kyc/{role}", h.GetKYCHandler)

		// Once a buyer is matched the mobile client addresses the flow as a
		// transaction, so the buyer-side endpoints live under /transaction.
		r.Put("/transaction/{id}/buyer/kyc", h.SubmitBuyerKYCHandler)
		r.Put("/transaction/{id}/buyer/kyc/payment", h.RegisterBuyerPaymentHandler)
	})

	// Internal service-to-service endpoints.
	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		r.Post("/transaction/{id}/settle", h.SettleTransactionHandler)
	})

	return r
}
