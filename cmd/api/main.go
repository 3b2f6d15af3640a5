package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/triage-concierge/cmd/mainconfig"
	"github.com/wolfman30/triage-concierge/internal/api/router"
	"github.com/wolfman30/triage-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/triage-concierge/internal/config"
	"github.com/wolfman30/triage-concierge/internal/conversation"
	"github.com/wolfman30/triage-concierge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/triage-concierge/internal/http/middleware"
	"github.com/wolfman30/triage-concierge/internal/observability/metrics"
	"github.com/wolfman30/triage-concierge/internal/webchat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting triage-concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, convMetrics := setupMetrics()

	infra := bootstrap.Infra{}
	var dynamoClient *dynamodb.Client
	if cfg.UsesAWS() {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		clients := mainconfig.NewAWSClients(awsCfg, cfg)
		dynamoClient = clients.DynamoDB
		infra.SQS = clients.SQS
		infra.S3 = clients.S3
	}

	var redisCloser func() error
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, cfg.SessionBackend == "redis")
	if redisClient != nil {
		redisCloser = redisClient.Close
	}
	sessions, err := bootstrap.BuildSessionStore(cfg, redisClient, dynamoClient, logger)
	if err != nil {
		logger.Error("failed to build session store", "error", err)
		os.Exit(1)
	}
	infra.Sessions = sessions

	if pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger); pool != nil {
		infra.Pool = pool
		defer pool.Close()
	}
	if db := bootstrap.BuildArchiveDB(cfg.DatabaseURL, logger); db != nil {
		infra.ArchiveDB = db
		defer func() { _ = db.Close() }()
	}

	deps, err := bootstrap.BuildConversationDeps(cfg, infra, convMetrics, logger)
	if err != nil {
		logger.Error("failed to wire conversation dependencies", "error", err)
		os.Exit(1)
	}
	registry := conversation.NewRegistry(deps, cfg.OrchestratorIdleTTL, convMetrics)
	go registry.Run(ctx, time.Minute)

	tokens := httpmiddleware.NewSessionTokens(cfg.SessionTokenSecret, cfg.SessionTokenTTL)
	if tokens == nil {
		logger.Warn("SESSION_TOKEN_SECRET not set; session routes are unauthenticated")
	}
	limiter := httpmiddleware.NewRateLimiter(cfg.SessionOpenRate, cfg.SessionOpenBurst)
	go limiter.Run(ctx, 5*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           handlers.NewSessionsHandler(registry, tokens, logger),
		WebSocket:          webchat.NewHandler(registry, cfg.CORSAllowedOrigins, logger),
		Tokens:             tokens,
		OpenLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.BackendTimeout + 10*time.Second,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if redisCloser != nil {
		_ = redisCloser()
	}
	logger.Info("server stopped")
}

// setupMetrics registers the conversation metrics and Go runtime collectors
// on a dedicated registry.
func setupMetrics() (http.Handler, *metrics.ConversationMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewConversationMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
