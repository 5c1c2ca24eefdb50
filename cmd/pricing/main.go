package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionlab/internal/pricing/application"
	"github.com/wyfcoding/optionlab/internal/pricing/infrastructure/messaging"
	"github.com/wyfcoding/optionlab/internal/pricing/infrastructure/persistence/mysql"
	"github.com/wyfcoding/optionlab/internal/pricing/infrastructure/persistence/redis"
	grpcserver "github.com/wyfcoding/optionlab/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/optionlab/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionlab/pkg/cache"
	"github.com/wyfcoding/optionlab/pkg/config"
	"github.com/wyfcoding/optionlab/pkg/db"
	"github.com/wyfcoding/optionlab/pkg/logger"
	"github.com/wyfcoding/optionlab/pkg/metrics"
	"github.com/wyfcoding/optionlab/pkg/middleware"
	"github.com/wyfcoding/optionlab/pkg/mq"
	"github.com/wyfcoding/optionlab/pkg/ratelimit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/pricing/config.toml", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		logger.Fatal(context.Background(), "pricing service exited", "error", err)
	}
}

func run(configPath string) error {
	// 1. Config & Logger
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "starting service", "service", cfg.Service.Name, "version", cfg.Service.Version, "env", cfg.Service.Environment)

	// 2. Metrics
	var collector metrics.Collector = metrics.Noop{}
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		m := metrics.New(cfg.Service.Name)
		if err := m.Register(registry); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		collector = metrics.NewPrometheusCollector(m)
	}

	// 3. Database
	database, err := db.Init(ctx, db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.AutoMigrate(&mysql.PricingResultModel{}, &messaging.OutboxMessage{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// 4. Redis: result cache and rate limiter
	redisCache, err := cache.New(ctx, cache.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return err
	}
	defer redisCache.Close()

	var limiter ratelimit.RateLimiter
	limit := ratelimit.PerSecond(cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewRedisRateLimiter(redisCache.Client())
	}

	// 5. Kafka
	producer := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	defer producer.Close()

	// 6. Application
	repo := mysql.NewPricingRepository(database.DB)
	publisher := messaging.NewOutboxEventPublisher(database.DB)
	app := application.NewPricingService(repo, publisher, redis.NewPricingCache(redisCache), collector, application.Options{
		Workers:                cfg.Pricing.Workers,
		MaxPaths:               cfg.Pricing.MaxPaths,
		MaxSteps:               cfg.Pricing.MaxSteps,
		MaxLSMCells:            cfg.Pricing.MaxLSMCells,
		MaxSamplePaths:         cfg.Pricing.MaxSamplePaths,
		MaxBatchSize:           cfg.Pricing.MaxBatchSize,
		DefaultConfidenceLevel: cfg.Pricing.DefaultConfidenceLevel,
		HistoryLimit:           cfg.Pricing.HistoryLimit,
		CacheTTL:               cfg.Pricing.CacheTTL,
	})
	relay := messaging.NewRelay(database.DB, producer, messaging.RelayConfig{
		Topic:     cfg.Pricing.Outbox.Topic,
		Interval:  cfg.Pricing.Outbox.RelayInterval,
		BatchSize: cfg.Pricing.Outbox.BatchSize,
		Retention: cfg.Pricing.Outbox.Retention,
	}, collector)

	// 7. Interfaces
	grpcSrv := grpcserver.NewServer(grpcserver.NewGRPCHandler(app), grpcserver.ServerOptions{
		MaxConcurrentStreams: cfg.GRPC.MaxConcurrentStreams,
		Metrics:              collector,
		Limiter:              limiter,
		Limit:                limit,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      newRouter(cfg, app, collector, registry, limiter, limit),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// 8. Start
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return err
		}
		logger.Info(gctx, "grpc server starting", "addr", cfg.GRPC.Addr())
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		logger.Info(gctx, "http server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})

	// 9. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, app *application.PricingService, collector metrics.Collector, registry *prometheus.Registry, limiter ratelimit.RateLimiter, limit ratelimit.Limit) *gin.Engine {
	if cfg.Service.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecovery(),
		middleware.GinRequestContext(),
		middleware.GinLogging(),
		middleware.GinCORS(),
		middleware.GinMetrics(collector),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.Service.Name,
			"timestamp": time.Now().Unix(),
		})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler(registry)))
	}

	api := r.Group("")
	if limiter != nil {
		api.Use(middleware.GinRateLimit(limiter, limit))
	}
	httphandler.NewPricingHandler(app).RegisterRoutes(api)
	return r
}

