// Package main 异步演示文稿任务执行器入口（deck-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"pitchforge-ai-api/internal/config"
	einoobs "pitchforge-ai-api/internal/observability/eino"
	"pitchforge-ai-api/internal/wire"
	"pitchforge-ai-api/pkg/logger"
	"pitchforge-ai-api/pkg/tracer"
)

// dlqAlertThreshold 死信条数超过该值时告警
const dlqAlertThreshold = 10

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "deck-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if err := worker.PgClient.HealthCheck(ctx); err != nil {
		logger.Fatal(ctx, "postgres health check failed", err)
	}
	logger.Info(ctx, "deck-worker started", "backend", cfg.Deck.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Consumer.Run(gctx)
	})
	g.Go(func() error {
		worker.Consumer.MonitorDLQ(gctx, dlqAlertThreshold)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		worker.Consumer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "deck-worker exited with error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "deck-worker exited")
}
