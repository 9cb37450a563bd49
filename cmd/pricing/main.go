package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mdapp "github.com/wyfcoding/structuredpricing/internal/marketdata/application"
	"github.com/wyfcoding/structuredpricing/internal/marketdata/infrastructure/persistence"
	"github.com/wyfcoding/structuredpricing/internal/marketdata/infrastructure/yahoo"
	mdhttp "github.com/wyfcoding/structuredpricing/internal/marketdata/interfaces/http"
	"github.com/wyfcoding/structuredpricing/internal/pricing/application"
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/internal/pricing/infrastructure/client"
	"github.com/wyfcoding/structuredpricing/internal/pricing/infrastructure/messaging"
	grpcserver "github.com/wyfcoding/structuredpricing/internal/pricing/interfaces/grpc"
	httphandler "github.com/wyfcoding/structuredpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/structuredpricing/pkg/cache"
	"github.com/wyfcoding/structuredpricing/pkg/config"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
	"github.com/wyfcoding/structuredpricing/pkg/metrics"
	"github.com/wyfcoding/structuredpricing/pkg/middleware"
	"github.com/wyfcoding/structuredpricing/pkg/mq"
	"github.com/wyfcoding/structuredpricing/pkg/ratelimit"
)

const BootstrapName = "pricing"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/pricing.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		slog.Error("init logger failed", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(registry); err != nil {
		logger.Error(ctx, "register metrics failed", "error", err)
		os.Exit(1)
	}

	// 4. Infrastructure
	var (
		store   cache.Cache
		limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	)
	if cfg.Redis.Enabled() {
		redisCache, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Error(ctx, "connect redis failed", "error", err)
			os.Exit(1)
		}
		store = redisCache
		limiter = ratelimit.NewRedisRateLimiter(redisCache.GetClient())
	} else {
		logger.Warn(ctx, "redis not configured, using in-process cache and rate limiter")
		store = cache.NewMemory()
	}
	defer store.Close()

	var publisher domain.EventPublisher = domain.NopEventPublisher{}
	if cfg.Kafka.Enabled() {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Error(ctx, "create kafka producer failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = messaging.NewKafkaEventPublisher(producer, cfg.Kafka.PricingTopic)
	}

	yahooClient := yahoo.NewClient(yahoo.Config{
		BaseURL:         cfg.MarketData.BaseURL,
		Timeout:         time.Duration(cfg.MarketData.Timeout) * time.Second,
		MaxRetries:      cfg.MarketData.MaxRetries,
		BreakerFailures: uint32(max(cfg.MarketData.BreakerFailures, 0)),
		BreakerTimeout:  time.Duration(cfg.MarketData.BreakerTimeout) * time.Second,
	})
	snapshotCache := persistence.NewSnapshotCache(store, time.Duration(cfg.MarketData.CacheTTL)*time.Second)

	// 5. Application
	snapshots := mdapp.NewSnapshotService(yahooClient, snapshotCache, m)
	query := application.NewPricingQueryService(client.NewMarketDataClient(snapshots))
	command := application.NewPricingCommandService(cfg.Pricing, nil, query, publisher, m)
	appService := application.NewPricingService(command, query)

	// 6. Interfaces
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   BootstrapName,
			"version":   cfg.Version,
			"timestamp": time.Now().Unix(),
		})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	api := router.Group("/", middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	httphandler.NewPricingHandler(appService).RegisterRoutes(api)
	mdhttp.NewMarketDataHandler(snapshots).RegisterRoutes(api)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 7. Start
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv = grpcserver.NewServer(cfg.GRPC)
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port))
		if err != nil {
			logger.Error(ctx, "listen gRPC failed", "error", err)
			os.Exit(1)
		}
		go func() {
			logger.Info(ctx, "Starting gRPC server", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error(ctx, "gRPC server failed", "error", err)
			}
		}()
	}

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.Shutdown()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", "error", err)
	}
	logger.Info(ctx, "Server exiting")
}
