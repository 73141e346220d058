package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/handlers"
	"github.com/ecotrajet/ecotrajet/internal/middleware"
	"github.com/ecotrajet/ecotrajet/internal/models"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Dependencies bundles what the router needs from the composition root
type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	AccountHandler *handlers.AccountHandler
	UserHandler    *handlers.UserHandler
	Health         http.HandlerFunc

	TokenManager     *auth.TokenManager
	UserRepo         auth.UserRepository
	Revocations      auth.TokenRevocationChecker
	RevocationConfig auth.RevocationConfig

	SecurityHeaders middleware.SecurityHeadersConfig
	CORS            *middleware.CORSConfig
	Limits          middleware.AuthRateLimits
	RequestTimeout  time.Duration // zero disables the per-request deadline
	Logger          *slog.Logger
}

// NewRouter builds the application router with its global middleware stack
func NewRouter(deps Dependencies) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.StripSlashes)
	router.Use(middleware.SecurityHeaders(deps.SecurityHeaders))
	router.Use(middleware.CORS(deps.CORS))
	router.Use(middleware.SecureLogger(deps.Logger))
	router.Use(chimiddleware.Recoverer)
	if deps.RequestTimeout > 0 {
		router.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	router.Get("/health", deps.Health)
	RegisterRoutes(router, deps)
	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	authn := auth.AuthMiddlewareWithRevocation(deps.TokenManager, deps.Revocations, deps.RevocationConfig)

	router.Route("/auth", func(r chi.Router) {
		// Public routes - no authentication required
		r.With(middleware.RateLimitByIP(deps.Limits.Login)).Post("/token", deps.AuthHandler.Login)
		r.With(middleware.RateLimitByIP(deps.Limits.Register)).Post("/register", deps.AuthHandler.Register)
		r.Post("/token/refresh", deps.AuthHandler.RefreshToken)
		r.Get("/verify-email/{uid}/{token}", deps.AccountHandler.VerifyEmail)
		r.With(middleware.RateLimitByIP(deps.Limits.PasswordReset)).Post("/password-reset", deps.AccountHandler.RequestPasswordReset)
		r.Post("/password-reset/confirm", deps.AccountHandler.ConfirmPasswordReset)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/change-password", deps.AccountHandler.ChangePassword)
			r.Get("/activity", deps.AuthHandler.Activity)
			r.Post("/logout", deps.AuthHandler.Logout)
			r.Get("/profile", deps.UserHandler.GetProfile)
			r.Patch("/profile", deps.UserHandler.UpdateProfile)
			r.Delete("/profile", deps.UserHandler.DeleteProfile)
		})
	})

	// Admin-only routes
	router.Route("/users", func(r chi.Router) {
		r.Use(authn)
		r.Use(auth.RequireRole(deps.UserRepo, models.RoleAdmin))
		r.Get("/", deps.UserHandler.ListUsers)
		r.Put("/{id}/role", deps.UserHandler.AssignRole)
	})
}
