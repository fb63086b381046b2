package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LeventeLantos/sms-dispatch/internal/metrics"
	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

// BrandFooter ends every formatted SMS.
const BrandFooter = "— MyBusiness"

const (
	defaultEvent    = "transaction"
	defaultLanguage = "English"
)

// Generator is an external text-generation provider. An empty result with a
// nil error means the provider had nothing to offer.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Formatter turns events into branded SMS text, trying each provider in
// order before falling back to a fixed template.
type Formatter struct {
	providers []Generator
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewFormatter(providers ...Generator) *Formatter {
	return &Formatter{
		providers: providers,
		now:       time.Now,
	}
}

func (f *Formatter) WithMetrics(m *metrics.Metrics) *Formatter {
	f.metrics = m
	return f
}

func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	f.now = now
	return f
}

// Format never surfaces provider failures; it only errors when ctx is done.
func (f *Formatter) Format(ctx context.Context, e model.Event) (string, error) {
	prompt := f.BuildPrompt(e)

	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := p.Generate(ctx, prompt)
		if err != nil {
			slog.Warn("text provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if out == "" {
			continue
		}

		f.record(p.Name())
		return WithFooter(out), nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.record(metrics.SourceFallback)
	return f.Fallback(e), nil
}

func (f *Formatter) BuildPrompt(e model.Event) string {
	return fmt.Sprintf(
		"Convert this event into a professional SMS with branding:\n"+
			"Event: %s\nAmount: %s\nDate: %s\nPhone: %s\nLanguage: %s\n"+
			"Rules:\n"+
			"- Always end with %q\n"+
			"- Be polite, concise, and professional\n"+
			"- If event type is unknown, use a generic transaction message",
		f.eventName(e), e.Amount(), f.date(e), e.Phone(), language(e), BrandFooter,
	)
}

// Fallback is the deterministic template used when no provider answers.
func (f *Formatter) Fallback(e model.Event) string {
	amount := ""
	if a := e.Field("amount"); a != "" {
		amount = " Amount: " + a + "."
	}
	event := f.eventName(e)
	date := f.date(e)

	if strings.Contains(strings.ToLower(language(e)), "swahili") {
		return fmt.Sprintf("Taarifa ya %s imerekodiwa.%s Tarehe: %s. %s", event, amount, date, BrandFooter)
	}
	return fmt.Sprintf("Your %s has been recorded.%s Date: %s. %s", event, amount, date, BrandFooter)
}

// WithFooter appends the brand footer unless text already ends with it.
func WithFooter(text string) string {
	if strings.HasSuffix(text, BrandFooter) {
		return text
	}
	return strings.TrimSpace(text + " " + BrandFooter)
}

func (f *Formatter) eventName(e model.Event) string {
	if v := e.Name(); v != "" {
		return v
	}
	return defaultEvent
}

func (f *Formatter) date(e model.Event) string {
	if v := e.Date(); v != "" {
		return v
	}
	return f.now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func language(e model.Event) string {
	if v := e.Language(); v != "" {
		return v
	}
	return defaultLanguage
}

func (f *Formatter) record(source string) {
	if f.metrics != nil {
		f.metrics.FormatResults.WithLabelValues(source).Inc()
	}
}
