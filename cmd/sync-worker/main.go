package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewithpritom/lms-storefront/internal/cron"
	"github.com/codewithpritom/lms-storefront/internal/session"
	"github.com/codewithpritom/lms-storefront/pkg/config"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/metrics"
	"github.com/codewithpritom/lms-storefront/pkg/redis"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	authority, err := webhook.NewClient(cfg.Webhook.BaseURL,
		webhook.WithHTTPClient(&http.Client{Timeout: cfg.Webhook.Timeout}),
		webhook.WithAuthURL(cfg.Webhook.AuthURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook client", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(cfg.Session, redisClient, redis.IsMissing)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	syncer, err := session.NewSyncer(redisClient, authority, sessions, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create access syncer", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewAccessSyncJob(syncer)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Sync.LockKey, cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	go serveMetrics(ctx, logg, cfg.Sync.Port)

	logg.Info(ctx, "starting sync worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
