package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"addebiti/internal/amqp"
	"addebiti/internal/cache"
	"addebiti/internal/cli"
	"addebiti/internal/config"
	apphttp "addebiti/internal/http"
	applog "addebiti/internal/log"
	"addebiti/internal/metrics"
	"addebiti/internal/middleware/ratelimit"
	"addebiti/internal/services"
	"addebiti/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	m := metrics.New()
	calendar := cache.NewCalendarCache(cfg.CalendarCacheSize, cfg.CalendarCacheTTL)
	calendar.OnInvalidate(m.AddInvalidations)
	cacheManager := cache.NewManager()
	cacheManager.Register("calendar", calendar)

	notifier := services.NewFanoutNotifier(calendar)

	// Publishing and cross-instance invalidation both need the broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			notifier.Add(amqpClient)
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPQueue)
		}
	}

	engine := services.NewEngine(res.Stores, notifier)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitPerSecond,
		Burst:             cfg.RateLimitBurst,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Engine:    engine,
		Calendar:  calendar,
		Metrics:   m,
		Limiter:   limiter,
		Readiness: []apphttp.ReadinessCheck{res.Ready},
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting addebiti server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return limiter.Run(gctx)
	})

	g.Go(func() error {
		cacheManager.StartCleanup(gctx, cfg.CacheCleanupInterval)
		<-gctx.Done()
		cacheManager.Stop()
		return nil
	})

	if amqpClient != nil {
		invalidation := worker.NewInvalidationWorker(amqpClient, calendar)
		g.Go(func() error {
			return invalidation.Run(gctx)
		})
	}

	return g.Wait()
}
