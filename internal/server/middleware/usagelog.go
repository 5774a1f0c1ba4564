package middleware

import (
	"net/http"
	"time"

	"github.com/quartzbi/quartz/internal/model"
)

// UsageSink receives one entry per completed key-authenticated request.
// Implemented by the usage recorder; recording must never block.
type UsageSink interface {
	Record(entry model.RequestLog)
}

// KeyUsage returns an HTTP middleware that attributes completed requests to
// the authenticating API key. Admin sessions and unauthenticated requests
// are not recorded. Must run after Authenticate.
func KeyUsage(sink UsageSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil || principal.Type != "api_key" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			sink.Record(model.RequestLog{
				APIKeyID:       principal.KeyID,
				Method:         r.Method,
				Path:           r.URL.Path,
				StatusCode:     ww.status,
				ResponseTimeMs: int(time.Since(start).Milliseconds()),
				CreatedAt:      time.Now().UTC(),
			})
		})
	}
}
