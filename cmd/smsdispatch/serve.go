package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/LeventeLantos/sms-dispatch/internal/api"
	"github.com/LeventeLantos/sms-dispatch/internal/auth"
	"github.com/LeventeLantos/sms-dispatch/internal/client"
	"github.com/LeventeLantos/sms-dispatch/internal/config"
	"github.com/LeventeLantos/sms-dispatch/internal/db"
	"github.com/LeventeLantos/sms-dispatch/internal/metrics"
	"github.com/LeventeLantos/sms-dispatch/internal/ratelimit"
	"github.com/LeventeLantos/sms-dispatch/internal/repo"
	"github.com/LeventeLantos/sms-dispatch/internal/scheduler"
	"github.com/LeventeLantos/sms-dispatch/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook, queue API and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadAll(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("sms dispatch starting",
		"addr", cfg.Server.Address,
		"store", cfg.Store(),
		"redis", cfg.Redis.Enabled(),
		"copy_numbers", len(cfg.Queue.CopyNumbers),
	)

	messages, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, closeLimiter, err := openLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	m := metrics.New()
	formatter := service.NewFormatter(providers(cfg)...).WithMetrics(m)
	queue := service.NewQueueService(messages, formatter, cfg.Queue.CopyNumbers).WithMetrics(m)

	h := api.NewHandler(queue, api.Options{
		Gate:    auth.NewGate(cfg.Auth.APIKey, cfg.Auth.JWTSecret),
		Limiter: limiter,
		Window:  cfg.RateLimit.Window,
		Limits: api.Limits{
			Webhook:    cfg.RateLimit.Webhook,
			GetSMS:     cfg.RateLimit.GetSMS,
			ConfirmSMS: cfg.RateLimit.ConfirmSMS,
			ResendSMS:  cfg.RateLimit.ResendSMS,
		},
		Metrics:       m,
		PublicBaseURL: cfg.Dashboard.PublicBaseURL,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(h)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repo.MessageRepository, func(), error) {
	if cfg.Store() == config.StoreSupabase {
		return repo.NewSupabaseMessageRepo(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey), func() {}, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	return repo.NewPostgresMessageRepo(sqlDB), func() { _ = sqlDB.Close() }, nil
}

// openLimiter shares windows through Redis when configured. Otherwise windows
// live in memory and a janitor prunes the expired ones.
func openLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable at startup, rate limiting will fail open until it recovers", "error", err)
		}
		return ratelimit.NewRedis(rdb), func() { _ = rdb.Close() }, nil
	}

	mem := ratelimit.NewMemory()
	janitor, err := scheduler.New(scheduler.Job{
		Name:     "ratelimit-prune",
		Interval: cfg.RateLimit.Window,
		Run: func(ctx context.Context) {
			if n := mem.Prune(ctx); n > 0 {
				slog.Debug("pruned rate limit windows", "removed", n, "remaining", mem.Len())
			}
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if err := janitor.Start(ctx); err != nil {
		return nil, nil, err
	}
	return mem, func() { janitor.Stop() }, nil
}

// providers builds the AI chain, skipping providers without an API key.
func providers(cfg *config.Config) []service.Generator {
	var out []service.Generator
	if cfg.AI.OpenAIKey != "" {
		out = append(out, client.NewOpenAIClient(cfg.AI.OpenAIBaseURL, cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AITimeout()))
	}
	if cfg.AI.HFKey != "" {
		out = append(out, client.NewHuggingFaceClient(cfg.AI.HFBaseURL, cfg.AI.HFKey, cfg.AI.HFModel, cfg.AITimeout()))
	}
	if len(out) == 0 {
		slog.Warn("no AI provider configured, using template messages only")
	}
	return out
}
