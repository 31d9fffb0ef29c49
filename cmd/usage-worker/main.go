// Package main 用量事件归档器入口（usage-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"seo-article-api/internal/config"
	"seo-article-api/internal/domain/entity"
	"seo-article-api/internal/domain/repository"
	"seo-article-api/internal/infrastructure/messaging"
	"seo-article-api/internal/infrastructure/persistence/postgres"
	"seo-article-api/internal/infrastructure/persistence/redis"
	"seo-article-api/pkg/logger"
	"seo-article-api/pkg/metrics"
	"seo-article-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "usage-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	if err := pgClient.DB().AutoMigrate(&entity.UsageEvent{}); err != nil {
		logger.Fatal(ctx, "failed to migrate usage events table", err)
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	var usageRepo repository.UsageEventRepository = postgres.NewUsageEventRepository(pgClient)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamUsageEvents,
		Group:        messaging.ConsumerGroupUsageArchiver,
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
	})

	consumer.RegisterHandler(messaging.TypeUsageRecorded, archiveUsageEvent(usageRepo))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := consumer.Start(runCtx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	// DLQ 堆积监控
	go consumer.MonitorDLQ(runCtx, 100)

	logger.Info(ctx, "usage-worker started",
		"stream", string(messaging.StreamUsageEvents),
		"group", string(messaging.ConsumerGroupUsageArchiver),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down usage-worker...")
	cancel()
	consumer.Stop()
	logger.Info(ctx, "usage-worker exited")
}

// archiveUsageEvent 将用量事件消息归档到仓储
func archiveUsageEvent(repo repository.UsageEventRepository) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.UsageEventMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		event := &entity.UsageEvent{
			Provider:   payload.Provider,
			Model:      payload.Model,
			SessionID:  payload.SessionID,
			ClientID:   payload.ClientID,
			TokensUsed: payload.TokensUsed,
			Cost:       payload.Cost,
			DurationMs: payload.DurationMs,
			OccurredAt: payload.OccurredAt,
		}
		if err := repo.Create(ctx, event); err != nil {
			return err
		}

		metrics.UsageEventsArchived.Inc()
		logger.Debug(ctx, "usage event archived",
			"provider", payload.Provider,
			"session_id", payload.SessionID,
		)
		return nil
	}
}

// hostnameConsumerName 以主机名作为消费者名，多副本部署时互不冲突
func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "usage-worker-1"
	}
	return "usage-worker-" + host
}
