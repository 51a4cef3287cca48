package middleware

import (
	"encoding/json"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// TenantRateLimiter applies a token-bucket limit per tenant. Requests for
// several tenants are charged against the first tenant in the header.
type TenantRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewTenantRateLimiter creates a limiter allowing perSecond requests per
// tenant with the given burst.
func NewTenantRateLimiter(perSecond float64, burst int) *TenantRateLimiter {
	return &TenantRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether the tenant may proceed.
func (l *TenantRateLimiter) Allow(tenant string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[tenant]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenant] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// RateLimitByTenant returns middleware enforcing the per-tenant limit. It
// must run after RequireTenant.
func RateLimitByTenant(l *TenantRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenants := TenantsFromContext(r.Context())
			if len(tenants) > 0 && !l.Allow(tenants[0]) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    "RATE_LIMITED",
						"message": "too many requests for tenant",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
