package ratelimit

import (
	"net"
	"net/http"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
)

// Middleware applies per-source rate limiting keyed by client IP.
// Place it after chi's RealIP middleware so RemoteAddr is trustworthy.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			if !limiter.Allow(r.Context(), key) {
				logger.Warn("rate limit exceeded", "source", key, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
