// Package main API Gateway 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/application/quota"
	"seo-article-api/internal/application/workflow"
	"seo-article-api/internal/config"
	"seo-article-api/internal/domain/repository"
	"seo-article-api/internal/infrastructure/messaging"
	"seo-article-api/internal/infrastructure/persistence/memory"
	"seo-article-api/internal/infrastructure/persistence/redis"
	"seo-article-api/internal/infrastructure/provider"
	"seo-article-api/internal/interfaces/http/handler"
	"seo-article-api/internal/interfaces/http/router"
	"seo-article-api/pkg/logger"
	"seo-article-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-gateway",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Redis
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", err)
	}
	defer redisClient.Close()

	// 用量事件上报（Redis Stream）
	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
	reporter := messaging.NewUsageReporter(producer)

	// 配额跟踪
	tracker, err := quota.NewTracker(provider.QuotaLimits(cfg.LLM), cfg.LLM.QuotaTimezone, reporter)
	if err != nil {
		logger.Fatal(ctx, "failed to init quota tracker", err)
	}

	// LLM 提供商
	adapters, err := provider.NewAdapters(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal(ctx, "failed to init llm providers", err)
	}
	orch := orchestrator.NewOrchestrator(adapters, provider.Specs(cfg.LLM), tracker, cfg.LLM.RequestTimeout)

	// 会话存储
	var store repository.SessionStore
	switch cfg.Workflow.Store {
	case "redis":
		store = redis.NewSessionStore(redisClient, cfg.Workflow.SessionTTL)
		log.Info("using redis session store")
	default:
		memStore := memory.NewSessionStore(cfg.Workflow.SessionTTL)
		memStore.StartJanitor(ctx, cfg.Workflow.JanitorInterval)
		defer memStore.Stop()
		store = memStore
		log.Info("using in-memory session store")
	}

	// 工作流引擎
	engine := workflow.NewEngine(store, orch, cfg.Workflow.MaxConcurrentSessions)

	// 路由
	r := router.New(cfg, router.Handlers{
		Health:   handler.NewHealthHandler(redisClient),
		Workflow: handler.NewWorkflowHandler(engine),
		Content:  handler.NewContentHandler(orch),
		Provider: handler.NewProviderHandler(tracker),
	}, redis.NewRateLimiter(redisClient))

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	// 等待进行中的工作流会话收尾
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Error("workflow engine forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
