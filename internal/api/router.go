package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Endpoint names double as rate-limit key prefixes and metric labels.
const (
	EndpointWebhook    = "sms-webhook"
	EndpointGetSMS     = "get-sms"
	EndpointConfirmSMS = "confirm-sms"
	EndpointResendSMS  = "resend-sms"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	r.Get("/", h.Dashboard)

	r.With(h.guard(EndpointWebhook, h.limits.Webhook)...).Post("/api/sms-webhook", h.SMSWebhook)
	r.With(h.guard(EndpointGetSMS, h.limits.GetSMS)...).Get("/api/get-sms", h.GetSMS)
	r.With(h.guard(EndpointConfirmSMS, h.limits.ConfirmSMS)...).Post("/api/confirm-sms", h.ConfirmSMS)
	r.With(h.guard(EndpointResendSMS, h.limits.ResendSMS)...).Post("/api/resend-sms", h.ResendSMS)

	return r
}

// guard is the rate limit then auth chain every queue endpoint runs behind.
func (h *Handler) guard(endpoint string, limit int) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		h.rateLimit(endpoint, limit),
		h.requireAuth(endpoint),
	}
}
