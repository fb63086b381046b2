package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Formatter result sources.
const (
	SourceFallback = "fallback"
)

type Metrics struct {
	reg *prometheus.Registry

	Queued        prometheus.Counter
	Confirmations *prometheus.CounterVec
	Resends       prometheus.Counter
	FormatResults *prometheus.CounterVec
	RateLimited   *prometheus.CounterVec
	Unauthorized  *prometheus.CounterVec
}

// New registers the service collectors, plus Go and process collectors, on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_queued_total",
			Help: "Rows inserted into the SMS queue by the webhook.",
		}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sms_confirmations_total",
			Help: "Delivery outcomes reported through confirm-sms, by resulting status.",
		}, []string{"status"}),
		Resends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sms_resends_total",
			Help: "Messages reset to queued through resend-sms.",
		}),
		FormatResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sms_formatter_results_total",
			Help: "Formatted messages by the source that produced the text.",
		}, []string{"source"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected with 429, by endpoint.",
		}, []string{"endpoint"}),
		Unauthorized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_unauthorized_total",
			Help: "Requests rejected with 401, by endpoint.",
		}, []string{"endpoint"}),
	}

	reg.MustRegister(
		m.Queued,
		m.Confirmations,
		m.Resends,
		m.FormatResults,
		m.RateLimited,
		m.Unauthorized,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
