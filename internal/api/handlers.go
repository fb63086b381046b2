package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/LeventeLantos/sms-dispatch/internal/auth"
	"github.com/LeventeLantos/sms-dispatch/internal/metrics"
	"github.com/LeventeLantos/sms-dispatch/internal/model"
	"github.com/LeventeLantos/sms-dispatch/internal/ratelimit"
	"github.com/LeventeLantos/sms-dispatch/internal/service"
)

const maxBodyBytes = 1 << 20

// Queue is the part of service.QueueService the handlers depend on.
type Queue interface {
	Ingest(ctx context.Context, e model.Event) (int, error)
	ListQueued(ctx context.Context) ([]model.Message, error)
	Confirm(ctx context.Context, id string, success bool) (service.ConfirmResult, error)
	Resend(ctx context.Context, id string) (model.Status, error)
	Dashboard(ctx context.Context) model.Dashboard
}

// Limits are requests allowed per client IP per window, by endpoint.
type Limits struct {
	Webhook    int
	GetSMS     int
	ConfirmSMS int
	ResendSMS  int
}

type Options struct {
	Gate    *auth.Gate
	Limiter ratelimit.Limiter
	Window  time.Duration
	Limits  Limits
	Metrics *metrics.Metrics
	// PublicBaseURL prefixes the endpoint URLs shown on the dashboard.
	PublicBaseURL string
}

type Handler struct {
	queue         Queue
	gate          *auth.Gate
	limiter       ratelimit.Limiter
	window        time.Duration
	limits        Limits
	metrics       *metrics.Metrics
	publicBaseURL string
}

func NewHandler(q Queue, opts Options) *Handler {
	return &Handler{
		queue:         q,
		gate:          opts.Gate,
		limiter:       opts.Limiter,
		window:        opts.Window,
		limits:        opts.Limits,
		metrics:       opts.Metrics,
		publicBaseURL: opts.PublicBaseURL,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) SMSWebhook(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := decodeBody(w, r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if event == nil {
		event = model.Event{}
	}

	n, err := h.queue.Ingest(r.Context(), event)
	switch {
	case errors.Is(err, service.ErrMissingPhone):
		writeError(w, http.StatusBadRequest, "Missing phone number")
		return
	case errors.Is(err, service.ErrFormat):
		slog.Error("sms webhook failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to queue SMS")
		return
	case err != nil:
		slog.Error("queueing sms failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"queued": n})
}

func (h *Handler) GetSMS(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.queue.ListQueued(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Message{"messages": msgs})
}

type confirmRequest struct {
	ID      messageID `json:"id"`
	Success truthy    `json:"success"`
}

func (h *Handler) ConfirmSMS(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.queue.Confirm(r.Context(), string(req.ID), bool(req.Success))
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type resendRequest struct {
	ID messageID `json:"id"`
}

func (h *Handler) ResendSMS(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	status, err := h.queue.Resend(r.Context(), string(req.ID))
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Status{"status": status})
}

func writeQueueError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrMissingID) {
		writeError(w, http.StatusBadRequest, "Missing message id")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// messageID accepts any JSON value for id. Values that are absent under the
// event truthiness rule (null, false, 0, "") decode to the empty id.
type messageID string

func (m *messageID) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	*m = messageID(model.Text(v))
	return nil
}

// truthy decodes any JSON value using the event truthiness rule, so 1 and
// "true" count as true while 0, "" and null count as false.
type truthy bool

func (t *truthy) UnmarshalJSON(b []byte) error {
	v, err := decodeValue(b)
	if err != nil {
		return err
	}
	*t = truthy(model.Truthy(v))
	return nil
}

func decodeValue(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeBody treats an empty body as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
