package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig allows Requests per Window for each client IP
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AuthRateLimits holds the per-endpoint limits of the public auth routes
type AuthRateLimits struct {
	Login         RateLimitConfig
	Register      RateLimitConfig
	PasswordReset RateLimitConfig
}

// DefaultAuthRateLimits returns 5 logins per minute, 10 registrations per hour
// and 5 reset requests per hour
func DefaultAuthRateLimits() AuthRateLimits {
	return AuthRateLimits{
		Login:         RateLimitConfig{Requests: 5, Window: time.Minute},
		Register:      RateLimitConfig{Requests: 10, Window: time.Hour},
		PasswordReset: RateLimitConfig{Requests: 5, Window: time.Hour},
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Request was throttled. Please try again later.")
		}),
	)
}
