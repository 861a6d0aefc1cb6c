package middleware

import (
	"net/http"
	"strings"

	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/ratelimit"
)

// RateLimit rejects requests from clients that exceed the limiter's
// per-IP budget.
func RateLimit(limiter ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), "ip:"+clientIP(r))
			if err != nil {
				common.RespondAppError(w, pkgerrors.NewInternalError("rate limiter failed").WithCause(err))
				return
			}
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
