/**
 * @description
 * Rate-limiting middleware for the validation endpoints. Limits are
 * enforced per authenticated user via Redis; unauthenticated requests
 * fall back to the client IP.
 */
package api

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vicky55567123/tutorhub-sub000/internal/app"
	"github.com/vicky55567123/tutorhub-sub000/pkg/middleware"
)

// RateLimitMiddleware caps the number of requests per subject within the
// configured window. A nil limiter disables limiting entirely.
func RateLimitMiddleware(limiter *app.RedisValidationRateLimiter, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			subject := middleware.GetUserIDFromContext(r.Context())
			if subject == "" {
				subject = clientIP(r)
			}

			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), scope, subject, limit, window)
			if err != nil {
				// Redis being down should not take validation down with it.
				log.Printf("Rate limiter unavailable for scope %s: %v", scope, err)
				next.ServeHTTP(w, r)
				return
			}

			if count > limit {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				http.Error(w, "Too many validation requests. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
