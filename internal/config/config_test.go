package config

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoadFrom_HappyPath_Postgres(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"POSTGRES_URL": "postgres://u:p@localhost:5432/db?sslmode=disable",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.Store() != StorePostgres {
		t.Fatalf("expected postgres store, got %q", cfg.Store())
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected Server.Address default: %q", cfg.Server.Address)
	}
	if cfg.RateLimit.Window != 60*time.Second {
		t.Fatalf("unexpected RateLimit.Window default: %v", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Webhook != 30 || cfg.RateLimit.GetSMS != 120 || cfg.RateLimit.ConfirmSMS != 120 || cfg.RateLimit.ResendSMS != 60 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.AI.OpenAIModel != "gpt-3.5-turbo" {
		t.Fatalf("unexpected OpenAIModel default: %q", cfg.AI.OpenAIModel)
	}
	if cfg.AI.HFModel != "mistralai/Mistral-7B-Instruct-v0.2" {
		t.Fatalf("unexpected HFModel default: %q", cfg.AI.HFModel)
	}
	if cfg.AITimeout() != 10*time.Second {
		t.Fatalf("unexpected AI timeout: %v", cfg.AITimeout())
	}
	if strings.Join(cfg.Queue.CopyNumbers, ",") != "0720363215,0768741104" {
		t.Fatalf("unexpected CopyNumbers default: %v", cfg.Queue.CopyNumbers)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("expected Redis disabled when REDIS_ADDR not set")
	}
}

func TestLoadFrom_HappyPath_SupabaseWithRedis(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"SUPABASE_URL":              "https://proj.supabase.co/",
		"SUPABASE_SERVICE_ROLE_KEY": "service-key",
		"REDIS_ADDR":                "localhost:6379",
		"REDIS_PASSWORD":            "secret",
		"REDIS_DB":                  "3",
		"COPY_NUMBERS":              "0700000001,0700000002,0700000003",
		"NEXT_PUBLIC_BASE_URL":      "https://sms.example.com/",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.Store() != StoreSupabase {
		t.Fatalf("expected supabase store, got %q", cfg.Store())
	}
	if cfg.Supabase.URL != "https://proj.supabase.co" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Supabase.URL)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.DB != 3 || cfg.Redis.Password != "secret" {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
	if len(cfg.Queue.CopyNumbers) != 3 {
		t.Fatalf("expected 3 copy numbers, got %v", cfg.Queue.CopyNumbers)
	}
	if cfg.Dashboard.PublicBaseURL != "https://sms.example.com" {
		t.Fatalf("unexpected PublicBaseURL: %q", cfg.Dashboard.PublicBaseURL)
	}
}

func TestLoadFrom_StoreMissing(t *testing.T) {
	t.Run("no store at all", func(t *testing.T) {
		_, err := load(t, map[string]string{})
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "POSTGRES_URL or SUPABASE_URL") {
			t.Fatalf("expected error mentioning store vars, got: %v", err)
		}
	})

	t.Run("supabase without key", func(t *testing.T) {
		_, err := load(t, map[string]string{"SUPABASE_URL": "https://proj.supabase.co"})
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "SUPABASE_SERVICE_ROLE_KEY") {
			t.Fatalf("expected error mentioning SUPABASE_SERVICE_ROLE_KEY, got: %v", err)
		}
	})
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid RATE_LIMIT_WEBHOOK", "RATE_LIMIT_WEBHOOK", "abc"},
		{"invalid RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW", "soon"},
		{"invalid REDIS_DB", "REDIS_DB", "bad"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, map[string]string{
				"POSTGRES_URL": "postgres://localhost/db",
				tc.key:         tc.val,
			})
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error mentioning %s, got: %v", tc.key, err)
			}
		})
	}
}

func TestLoadFrom_ValidationFailuresAreJoined(t *testing.T) {
	_, err := load(t, map[string]string{
		"POSTGRES_URL":          "postgres://localhost/db",
		"RATE_LIMIT_WEBHOOK":    "0",
		"RATE_LIMIT_RESEND_SMS": "-1",
		"RATE_LIMIT_WINDOW":     "0s",
		"LOG_LEVEL":             "loud",
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	for _, want := range []string{"RATE_LIMIT_WEBHOOK", "RATE_LIMIT_RESEND_SMS", "RATE_LIMIT_WINDOW", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error mentioning %s, got: %v", want, err)
		}
	}
}

func TestLoadDatabase(t *testing.T) {
	_, err := LoadDatabase(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_URL") {
		t.Fatalf("expected POSTGRES_URL error, got %v", err)
	}

	db, err := LoadDatabase(context.Background(), envconfig.MapLookuper(map[string]string{
		"POSTGRES_URL": "postgres://localhost/db",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.PostgresURL != "postgres://localhost/db" {
		t.Fatalf("unexpected PostgresURL: %q", db.PostgresURL)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
