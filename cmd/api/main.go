package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/roi-audit-backend/internal/ai"
	"github.com/nyashahama/roi-audit-backend/internal/api"
	"github.com/nyashahama/roi-audit-backend/internal/config"
	"github.com/nyashahama/roi-audit-backend/internal/db"
	"github.com/nyashahama/roi-audit-backend/internal/email"
	"github.com/nyashahama/roi-audit-backend/internal/pipeline"
	"github.com/nyashahama/roi-audit-backend/internal/store"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
	"github.com/nyashahama/roi-audit-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	st := store.New(pool, db.New(pool))

	// ── AI ────────────────────────────────────────────────────────────────────
	// Built on first use. Providers without a key are skipped; with none the
	// pipeline falls back to the canned recommendation.
	recommender := ai.NewLazy(func() (ai.Recommender, error) {
		return buildRecommender(cfg, logger), nil
	})

	// ── Email ─────────────────────────────────────────────────────────────────
	mailer := email.NewLazy(func() (email.Sender, error) {
		return buildSender(cfg, logger)
	})

	// ── Pipeline ──────────────────────────────────────────────────────────────
	p := pipeline.New(
		&typeform.Verifier{
			Secret:        cfg.TypeformWebhookSecret,
			RequireSecret: cfg.TypeformRequireSignature,
			Logger:        logger,
		},
		typeform.NewParser(logger),
		st,
		recommender,
		mailer,
		pipeline.Config{
			AITimeout:    cfg.AITimeout,
			EmailTimeout: cfg.EmailTimeout,
		},
		logger,
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(st, p, api.Config{
		Env:            cfg.Env,
		AllowedOrigin:  cfg.CORSOrigin,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second, // the webhook waits on the AI and email calls
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.StaleCheckInterval > 0 {
		monitor := worker.NewMonitor(st, worker.MonitorConfig{
			Interval:   cfg.StaleCheckInterval,
			StaleAfter: cfg.StaleAfter,
		}, logger)
		g.Go(func() error { return monitor.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		// Give in-flight webhooks up to 30 seconds to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// buildRecommender chains every configured provider in the order Gemini,
// OpenAI-compatible, Anthropic.
func buildRecommender(cfg *config.Config, logger *slog.Logger) ai.Recommender {
	var providers []ai.Recommender
	var names []string

	if cfg.GeminiAPIKey != "" {
		providers = append(providers, ai.NewGeminiClient(ai.ProviderConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.AITimeout,
		}))
		names = append(names, "gemini")
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, ai.NewOpenAIClient(ai.ProviderConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.AITimeout,
		}))
		names = append(names, "openai")
	}
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, ai.NewAnthropicClient(ai.ProviderConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.AITimeout,
		}))
		names = append(names, "anthropic")
	}

	if len(providers) == 0 {
		logger.Warn("ai: no provider configured, every submission gets the fallback recommendation")
	} else {
		logger.Info("ai: providers configured", "order", names)
	}
	return ai.Chain(logger, providers...)
}

// buildSender returns the configured email provider. A missing key yields a
// Sender that fails every send, so submissions are stored as failed instead
// of the server refusing to start.
func buildSender(cfg *config.Config, logger *slog.Logger) (email.Sender, error) {
	mailCfg := email.Config{
		FromAddr:   cfg.EmailFromAddr,
		FromName:   cfg.EmailFromName,
		CTAURL:     cfg.CTAURL,
		TemplateID: cfg.SendGridTemplateID,
	}

	if cfg.EmailAPIKey() == "" {
		logger.Warn("email: no API key configured, results emails will not be sent", "provider", cfg.EmailProvider)
		return email.Unconfigured(), nil
	}

	switch cfg.EmailProvider {
	case config.EmailProviderSendGrid:
		logger.Info("email: using SendGrid", "templated", mailCfg.TemplateID != "")
		return email.NewSendGridClient(cfg.SendGridAPIKey, "", mailCfg, cfg.EmailTimeout), nil
	case config.EmailProviderResend:
		logger.Info("email: using Resend")
		return email.NewResendClient(cfg.ResendAPIKey, "", mailCfg, cfg.EmailTimeout), nil
	default:
		return nil, fmt.Errorf("email: unknown provider %q", cfg.EmailProvider)
	}
}

// openDB opens the connection pool and verifies it is reachable before the
// server starts accepting webhooks.
func openDB(dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}
