/**
 * @description
 * This file sets up the HTTP router using the `chi` routing library. It
 * defines all the API routes and applies necessary middleware.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The routing library.
 * - github.com/go-chi/cors: CORS middleware.
 * - The service's internal packages for handlers and middleware.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vicky55567123/tutorhub-sub000/internal/app"
	"github.com/vicky55567123/tutorhub-sub000/internal/config"
	"github.com/vicky55567123/tutorhub-sub000/internal/store"
	"github.com/vicky55567123/tutorhub-sub000/pkg/middleware"
)

// RouterDeps bundles the dependencies the router needs.
type RouterDeps struct {
	Users             store.UserRepository
	ValidationService *app.ValidationService
	PaymentService    *app.PaymentService
	RateLimiter       *app.RedisValidationRateLimiter
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(cfg *config.Config, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Bank-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public endpoints
	r.Get("/providers", ListProviders)

	authHandler := NewAuthHandler(deps.Users, cfg.JWTSecret)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	validationHandler := NewValidationHandler(deps.ValidationService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)

	rateLimitWindow := time.Duration(cfg.ValidationRateLimitWindow) * time.Second

	// Group routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTSecret))

		r.Route("/validation", func(r chi.Router) {
			r.Use(RateLimitMiddleware(deps.RateLimiter, "validation", cfg.ValidationRateLimit, rateLimitWindow))

			r.Post("/bank-details", validationHandler.ValidateBankDetails)
			r.Post("/name", validationHandler.ValidateName)
			r.Get("/history", validationHandler.ListHistory)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentHandler.CreatePayment)
			r.Get("/{id}", paymentHandler.GetPaymentStatus)
			r.Get("/accounts", paymentHandler.GetAccounts)
			r.Post("/verify-name", paymentHandler.VerifyName)

			r.Route("/consents", func(r chi.Router) {
				r.Post("/", paymentHandler.CreateConsent)
				r.Post("/{id}/token", paymentHandler.ExchangeToken)
				r.Delete("/{id}", paymentHandler.RevokeConsent)
			})
		})
	})

	return r
}
