// Command server starts the AI Interview Coach HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	tikaext "github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infra: DB pool
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("schema bootstrap: %w", err)
	}

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	// Optional Redis for the per-user question quota
	rdb, err := ratelimiter.NewClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	var limiter domain.Limiter
	var redisCheck func(context.Context) error
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		limiter = ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(cfg.QuestionRateLimitPerMin))
		redisCheck = func(ctx context.Context) error { return ratelimiter.Ping(ctx, rdb) }
		slog.Info("question quota enabled", slog.Int("per_min", cfg.QuestionRateLimitPerMin))
	} else {
		slog.Info("REDIS_URL not set; question quota disabled")
	}

	// Optional interview events
	var events domain.EventPublisher = redpanda.NoopPublisher{}
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		if err != nil {
			return fmt.Errorf("event publisher: %w", err)
		}
		defer pub.Close()
		events = pub
	} else {
		slog.Info("KAFKA_BROKERS not set; interview events disabled")
	}

	// AI
	prompts, err := config.LoadPromptConfig(cfg.PromptsFile)
	if err != nil {
		return err
	}
	client := gemini.New(cfg)
	if !client.Configured() {
		slog.Warn("GEMINI_API_KEY or GEMINI_API_URL not set; AI calls will fail and fallbacks will be served")
	}
	aiSvc := gemini.NewService(gemini.NewOrchestrator(client, cfg.GetRetryConfig()), prompts, tokencount.NewCounter(), cfg.GeminiModel)

	// Resume text extraction (Apache Tika)
	var extractor domain.TextExtractor
	var tikaPinger app.Pinger
	if cfg.TikaURL != "" {
		tc := tikaext.New(cfg.TikaURL)
		extractor, tikaPinger = tc, tc
	} else {
		slog.Info("TIKA_URL not set; only .txt resumes are accepted")
	}

	// Usecases
	users := usecase.NewUserService(postgres.NewUserRepo(pool), httpserver.NewArgon2Hasher())
	interviews := usecase.NewInterviewService(postgres.NewUserRepo(pool), postgres.NewInterviewRepo(pool), aiSvc, events, limiter)

	dbCheck, redisReady, tikaCheck := app.BuildReadinessChecks(pool, redisCheck, tikaPinger)
	srv := httpserver.NewServer(cfg, users, interviews, extractor, dbCheck, redisReady, tikaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP, cancelRequests := newHTTPServer(cfg, handler)
	defer cancelRequests()

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	if err := shutdown(srvHTTP, cancelRequests, cfg.ServerShutdownTimeout); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
	slog.Info("server stopped")
	return nil
}
