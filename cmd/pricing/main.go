package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricer/internal/pricing/application"
	persistence_redis "github.com/wyfcoding/optionpricer/internal/pricing/infrastructure/persistence/redis"
	pricing_http "github.com/wyfcoding/optionpricer/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionpricer/pkg/cache"
	"github.com/wyfcoding/optionpricer/pkg/config"
	"github.com/wyfcoding/optionpricer/pkg/logger"
	"github.com/wyfcoding/optionpricer/pkg/metrics"
	"github.com/wyfcoding/optionpricer/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/pricing.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
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
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "starting pricing service",
		"service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	// 3. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		go func() {
			if err := m.Serve(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	// 4. Surface cache (optional)
	var surfaceCache *persistence_redis.SurfaceRepository
	if cfg.Redis.Enabled {
		rc, err := cache.New(cache.Config{
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
			// 缓存是纯优化，连不上时降级为直接计算
			logger.Warn(ctx, "redis unavailable, surface cache disabled", "error", err)
		} else {
			defer rc.Close()
			surfaceCache = persistence_redis.NewSurfaceRepository(
				rc, time.Duration(cfg.Pricing.SurfaceCacheTTL)*time.Second)
		}
	}

	// 5. Layers
	svc := newPricingService(cfg, surfaceCache, m)
	handler := pricing_http.NewPricingHandler(svc)

	// 6. Router
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
	)
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimit)
		router.Use(middleware.GinRateLimitMiddleware(limiter))
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "failed to serve", "error", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", "error", err)
	}
	logger.Info(ctx, "server exited")
}

// newPricingService 组装应用服务；surfaceCache 为 nil 时曲面不做记忆化。
// 注意不能把 nil 的具体类型指针直接塞进接口参数，否则接口非 nil
func newPricingService(cfg *config.Config, surfaceCache *persistence_redis.SurfaceRepository, m *metrics.Metrics) *application.PricingService {
	opts := application.Options{
		LatticeSteps:    cfg.Pricing.LatticeSteps,
		PayoffSteps:     cfg.Pricing.PayoffSteps,
		SurfaceMaxSteps: cfg.Pricing.SurfaceMaxSteps,
	}
	if surfaceCache != nil {
		return application.NewPricingService(opts, surfaceCache, m)
	}
	return application.NewPricingService(opts, nil, m)
}
