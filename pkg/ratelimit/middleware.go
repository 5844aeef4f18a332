package ratelimit

import (
	"net/http"
	"strconv"
)

// KeyFunc extracts the limiter key from a request, typically the client IP.
type KeyFunc func(r *http.Request) string

// Middleware enforces the bucket per extracted key and sets the usual
// X-RateLimit-* headers. A limiter error lets the request through; throttling
// is a shield, not a dependency.
func Middleware(b *Bucket, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if b == nil {
		panic("ratelimit: bucket is required")
	}
	if keyFunc == nil {
		panic("ratelimit: key function is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := b.Allow(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retry := int(result.RetryAfter().Seconds()); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retry))
				}
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
