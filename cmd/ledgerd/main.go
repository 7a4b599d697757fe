package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"streamledger/internal/core/ports"
	"streamledger/internal/core/services"
	httphandlers "streamledger/internal/handlers/http"
	"streamledger/internal/infrastructure/events"
	"streamledger/internal/infrastructure/middleware"
	"streamledger/internal/infrastructure/monitoring"
	"streamledger/internal/infrastructure/repositories/memory"
	redisrepo "streamledger/internal/infrastructure/repositories/redis"
	"streamledger/pkg/clock"
	"streamledger/pkg/config"
	"streamledger/pkg/logger"
	"streamledger/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Warnw("tracer shutdown failed", "error", err)
		}
	}()

	eventLog := events.NewLog()
	healthChecker := monitoring.NewHealthChecker()

	var (
		streams   ports.StreamRepository
		sessions  ports.SessionRepository
		registry  ports.RegistryRepository
		treasury  ports.Treasury
		eventSink ports.EventLog = eventLog
	)

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, log)
		if err != nil {
			log.Fatalw("failed to connect to Redis", "error", err)
		}
		defer redisrepo.CloseRedisClient(client)

		streams = redisrepo.NewRedisStreamRepository(client)
		sessions = redisrepo.NewRedisSessionRepository(client)
		registry = redisrepo.NewRedisRegistryRepository(client)
		treasury = redisrepo.NewRedisTreasury(client)
		eventSink = events.NewPublisher(eventLog, client, log)
		healthChecker.AddRedisCheck(client)
		log.Infow("using Redis persistence", "address", cfg.Redis.Address)
	} else {
		streams = memory.NewMemoryStreamRepository()
		sessions = memory.NewMemorySessionRepository()
		registry = memory.NewMemoryRegistryRepository()
		treasury = memory.NewMemoryTreasury()
		log.Infow("using in-memory persistence")
	}

	var metrics ports.MetricsRecorder
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
	}

	ledger := services.NewLedgerService(streams, sessions, registry, eventSink, treasury, metrics, clock.System(), log)

	reader := ports.LedgerReader(ledger)
	if cfg.Ledger.SummaryCacheTTL > 0 {
		reader = services.NewCachedLedgerView(ledger, cfg.Ledger.SummaryCacheTTL)
	}

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	authMW := middleware.AuthMiddleware(authService)
	api := router.Group("/api/v1")
	httphandlers.NewAuthHandler(authService).SetupRoutes(api)
	httphandlers.NewStreamHandler(ledger, reader).SetupRoutes(api, authMW)
	httphandlers.NewSessionHandler(ledger).SetupRoutes(api, authMW)
	httphandlers.NewEventsHandler(eventLog, cfg.Ledger.EventFeedBuffer, log).SetupRoutes(api)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infow("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	log.Infow("server stopped")
}
