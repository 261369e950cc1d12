// Package requesttime stamps each request with a single arrival time.
package requesttime

import (
	"net/http"
	"time"

	"marina/pkg/requestcontext"
)

// Middleware reads clock once per request and stores the result for
// requestcontext.Now. Tests pass a fixed clock.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), clock().UTC())))
		})
	}
}
