package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"golang.org/x/time/rate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Uses a sliding window algorithm.
// Applied in front of unauthenticated endpoints such as login.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// KeyRateLimiter enforces each API key's own per-minute budget. Limits live
// on the key record, so two keys hitting the same endpoint consume
// independent budgets. Admin sessions are not limited here.
type KeyRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
}

type keyLimiter struct {
	limiter  *rate.Limiter
	perMin   int
	lastSeen time.Time
}

func NewKeyRateLimiter() *KeyRateLimiter {
	return &KeyRateLimiter{limiters: make(map[string]*keyLimiter)}
}

// Middleware returns the enforcement middleware. Must run after Authenticate
// so the principal's limits are available.
func (k *KeyRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || principal.Type != "api_key" {
				next.ServeHTTP(w, r)
				return
			}

			if !k.allow(principal.KeyID, principal.RateLimitPerMinute) {
				w.Header().Set("Retry-After", "60")
				writeAuthError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (k *KeyRateLimiter) allow(keyID string, perMin int) bool {
	if perMin < 1 {
		perMin = 1
	}

	k.mu.Lock()
	l, ok := k.limiters[keyID]
	if !ok || l.perMin != perMin {
		// New key, or its limit changed since the limiter was built.
		l = &keyLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
			perMin:  perMin,
		}
		k.limiters[keyID] = l
	}
	l.lastSeen = time.Now()
	if len(k.limiters) > 10000 {
		k.evictStale()
	}
	k.mu.Unlock()

	return l.limiter.Allow()
}

// evictStale drops limiters idle for over an hour. Caller holds the lock.
func (k *KeyRateLimiter) evictStale() {
	cutoff := time.Now().Add(-time.Hour)
	for id, l := range k.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(k.limiters, id)
		}
	}
}
