package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"barHeight": func(count int) int { return max(count*12, 6) },
	"retryable": func(m model.Message) bool { return m.Retryable() },
}).ParseFS(templateFS, "templates/dashboard.html"))

type endpointLink struct {
	Label string
	URL   string
}

type dashboardView struct {
	model.Dashboard
	Endpoints     []endpointLink
	BaseURLSet    bool
	RetryCapacity int
	MaxRetries    int
}

func (h *Handler) endpointURL(path string) string {
	return h.publicBaseURL + path
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d := h.queue.Dashboard(r.Context())

	view := dashboardView{
		Dashboard: d,
		Endpoints: []endpointLink{
			{Label: "Webhook", URL: h.endpointURL("/api/sms-webhook")},
			{Label: "Queue", URL: h.endpointURL("/api/get-sms")},
			{Label: "Confirm", URL: h.endpointURL("/api/confirm-sms")},
			{Label: "Resend", URL: h.endpointURL("/api/resend-sms")},
		},
		BaseURLSet:    h.publicBaseURL != "",
		RetryCapacity: d.Stats.RetryCapacity(),
		MaxRetries:    model.MaxRetries,
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		slog.Error("render dashboard", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
