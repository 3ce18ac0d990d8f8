package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/codewithpritom/lms-storefront/api/routes"
	"github.com/codewithpritom/lms-storefront/internal/cart"
	"github.com/codewithpritom/lms-storefront/internal/checkout"
	"github.com/codewithpritom/lms-storefront/internal/promos"
	"github.com/codewithpritom/lms-storefront/internal/session"
	"github.com/codewithpritom/lms-storefront/pkg/config"
	"github.com/codewithpritom/lms-storefront/pkg/logger"
	"github.com/codewithpritom/lms-storefront/pkg/redis"
	"github.com/codewithpritom/lms-storefront/pkg/webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
		webhook.WithCheckoutURL(cfg.Webhook.CheckoutURL),
		webhook.WithVerificationURL(cfg.Webhook.VerificationURL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook client", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewStore(redisClient, redisClient, cfg.Cart.TTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	sessions, err := session.NewManager(cfg.Session, redisClient, redis.IsMissing)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cartStore,
		authority,
		authority,
		sessions,
		redisClient,
		cfg.Cart.SubmitLockTTL,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			cartStore,
			checkoutService,
			sessions,
			authority,
			promos.DefaultCatalog(),
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
