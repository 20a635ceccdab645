package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/havenlabs/haven-core-go/internal/config"
	"github.com/havenlabs/haven-core-go/internal/handler"
	"github.com/havenlabs/haven-core-go/internal/infra/cache"
	"github.com/havenlabs/haven-core-go/internal/infra/client"
	"github.com/havenlabs/haven-core-go/internal/infra/memstore"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/infra/postgres"
	"github.com/havenlabs/haven-core-go/internal/infra/redcache"
	"github.com/havenlabs/haven-core-go/internal/infra/resilience"
	"github.com/havenlabs/haven-core-go/internal/port"
	"github.com/havenlabs/haven-core-go/internal/scheduler"
	"github.com/havenlabs/haven-core-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Bool("use_redis", cfg.RedisAddr != ""),
		zap.Bool("ebitda_enabled", cfg.EbitdaAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.String("match_cron", cfg.MatchCronSpec),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), "haven-core", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	var (
		matchingStore    port.MatchingStore
		eventStore       port.EventStore
		recruitmentStore port.RecruitmentStore
		ready            func(ctx context.Context) error
	)

	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}

		matchingStore = postgres.NewMatchingStore(db)
		eventStore = postgres.NewEventStore(db)
		recruitmentStore = postgres.NewRecruitmentStore(db)
		ready = db.PingContext
		logger.Info("using postgres storage")
	} else {
		mem := memstore.New()
		matchingStore = mem
		eventStore = mem
		recruitmentStore = mem
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// --- Report cache ---
	var reportCache port.ReportCache
	if cfg.RedisAddr != "" {
		redisClient, err := redcache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		reportCache = redcache.NewReportCache(redisClient, logger)
		logger.Info("using redis report cache", zap.String("addr", cfg.RedisAddr))
	} else {
		reportCache = cache.NewReportCache(cfg.CacheTTL)
		logger.Info("using in-memory report cache")
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var ebitdaSource port.EbitdaSource
	if cfg.EbitdaAPIURL != "" {
		ebitdaSource = client.NewEbitdaClient(httpClient, cfg.EbitdaAPIURL, cb, resilienceCfg)
		logger.Info("ebitda annotation enabled", zap.String("url", cfg.EbitdaAPIURL))
	}

	// --- Services ---
	matchingSvc := service.NewMatchingService(matchingStore, metrics, logger)
	analyticsSvc := service.NewAnalyticsService(eventStore, ebitdaSource, reportCache, cfg.CacheTTL, metrics, logger)
	recruitmentSvc := service.NewRecruitmentService(recruitmentStore, cfg.CacheTTL, metrics, logger)

	// --- Scheduler ---
	sched := scheduler.New(matchingSvc, analyticsSvc, cfg.MatchCronSpec, cfg.ReviewCronSpec, logger)
	if err := sched.RegisterJobs(); err != nil {
		logger.Fatal("failed to register scheduled jobs", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Matching:    matchingSvc,
		Analytics:   analyticsSvc,
		Recruitment: recruitmentSvc,
		Metrics:     metrics,
		Logger:      logger,
		JWTSecret:   []byte(cfg.JWTSecret),
		Ready:       ready,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
