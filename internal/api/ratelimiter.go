package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow() bool
}

// retryHinter is implemented by limiters that can tell how long a rejected
// client should wait.
type retryHinter interface {
	RetryAfter() time.Duration
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// RetryAfter is the time until one token is available again.
func (l *limiterAdapter) RetryAfter() time.Duration {
	if l == nil || l.limiter == nil {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		if hinter, ok := limiter.(retryHinter); ok {
			seconds := int(math.Ceil(hinter.RetryAfter().Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
