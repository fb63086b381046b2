package api

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
)

func (h *Handler) rateLimit(endpoint string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := h.limiter.Hit(r.Context(), endpoint+":"+clientIP(r), limit, h.window)
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "endpoint", endpoint, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.UnixMilli(), 10))

			if !res.Allowed() {
				if h.metrics != nil {
					h.metrics.RateLimited.WithLabelValues(endpoint).Inc()
				}
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) requireAuth(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.gate.Authorized(r) {
				if h.metrics != nil {
					h.metrics.Unauthorized.WithLabelValues(endpoint).Inc()
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
