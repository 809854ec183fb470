package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/logsense/backend/internal/client"
	"github.com/logsense/backend/internal/config"
	"github.com/logsense/backend/internal/db"
	"github.com/logsense/backend/internal/handler"
	"github.com/logsense/backend/internal/logger"
	"github.com/logsense/backend/internal/metrics"
	"github.com/logsense/backend/internal/parser"
	"github.com/logsense/backend/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env 파일 로드 (없으면 무시)
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel)
	counters := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB 연결 및 스키마 부트스트랩
	database, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// AI 클라이언트 — key가 없어도 기동은 계속 (fallback 분석)
	classifier := client.NewClassifierClient(cfg.AI)
	var embedder service.TextEmbedder
	if embedClient, err := client.NewEmbeddingClient(cfg.AI); err != nil {
		log.Warnf("Related-alert embedding disabled: %v", err)
	} else {
		embedder = embedClient
	}
	pushClient := client.NewPushClient()

	// 파이프라인 조립: aggregator → analysis → alert → fanout
	agg := service.NewAggregator(
		time.Duration(cfg.Pipeline.BatchWindowSeconds)*time.Second,
		cfg.Pipeline.MaxBatchSize,
		cfg.Pipeline.QueueSize,
		counters,
	)
	analysis := service.NewAnalysisService(classifier,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second, cfg.AI.MaxAttempts, counters)
	webhookDelivery := service.NewWebhookDeliveryService(database)
	hub := service.NewFanoutHub(pushClient, database, webhookDelivery,
		cfg.Limits.SSEQueueSize, cfg.Limits.SSEMaxClients,
		cfg.Push.Concurrency, cfg.Push.MaxRetries, counters)
	alerts := service.NewAlertService(database, database, embedder, hub,
		time.Duration(cfg.Pipeline.CooldownSeconds)*time.Second,
		cfg.Limits.DefaultAlertsLimit, cfg.Limits.MaxAlertsLimit, counters)
	ingest := service.NewIngestService(parser.New(cfg.Limits.MaxLogLineLength),
		database, agg, cfg.Limits.MaxIngestBatch, counters)

	processor := service.NewProcessor(analysis, alerts, agg.Batches(), cfg.Pipeline.Workers)
	processorDone := make(chan struct{})
	go func() {
		processor.Run(ctx)
		close(processorDone)
	}()

	// 핸들러 및 라우팅
	ingestHandler := handler.NewIngestHandler(ingest)
	alertHandler := handler.NewAlertHandler(alerts, hub)
	tokenHandler := handler.NewTokenHandler(database)
	webhookHandler := handler.NewWebhookHandler(database)
	healthHandler := handler.NewHealthHandler(analysis, agg, hub)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.Server.CORSAllowedOrigins))

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/ingest", ingestHandler.Ingest)
	router.POST("/ingest/batch", ingestHandler.IngestBatch)
	router.GET("/logs/recent", ingestHandler.RecentLogs)

	router.GET("/alerts", alertHandler.List)
	router.GET("/alerts/stats", alertHandler.Stats)
	router.GET("/alerts/stream", alertHandler.Stream)
	router.GET("/alerts/:id", alertHandler.Get)
	router.GET("/alerts/:id/related", alertHandler.Related)

	router.POST("/register-token", tokenHandler.Register)
	router.DELETE("/register-token", tokenHandler.Unregister)

	router.GET("/webhooks", webhookHandler.List)
	router.POST("/webhooks", webhookHandler.Create)
	router.GET("/webhooks/:id", webhookHandler.Get)
	router.PUT("/webhooks/:id", webhookHandler.Update)
	router.DELETE("/webhooks/:id", webhookHandler.Delete)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down: draining open batches")

	// 순서: HTTP 수신 중단 → 열린 배치 플러시 → 워커 종료 대기
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown: %v", err)
	}

	agg.Stop()
	<-processorDone
	log.Info("Shutdown complete")
}
