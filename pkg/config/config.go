package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Webhook   WebhookConfig
	Redis     RedisConfig
	Session   SessionConfig
	Cart      CartConfig
	Sync      SyncConfig
	Handnotes HandnotesConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Webhook.ensureURLs(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CWP_APP_ENV" required:"true"`
	Port         string `envconfig:"CWP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CWP_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CWP_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CWP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// WebhookConfig points at the workflow-automation webhook service that owns
// coupons, user records, and enrollment grants.
type WebhookConfig struct {
	BaseURL         string        `envconfig:"CWP_WEBHOOK_URL" required:"true"`
	AuthURL         string        `envconfig:"CWP_AUTH_WEBHOOK_URL"`
	CheckoutURL     string        `envconfig:"CWP_CHECKOUT_WEBHOOK_URL"`
	VerificationURL string        `envconfig:"CWP_VERIFICATION_WEBHOOK_URL"`
	Timeout         time.Duration `envconfig:"CWP_WEBHOOK_TIMEOUT" default:"20s"`
}

// ensureURLs falls back to the main webhook URL for any context-specific
// endpoint left unset, mirroring the per-context override scheme.
func (w *WebhookConfig) ensureURLs() error {
	base := strings.TrimSpace(w.BaseURL)
	if base == "" {
		return fmt.Errorf("%s is required", EnvWebhookURL)
	}
	w.BaseURL = strings.TrimRight(base, "/")
	if w.AuthURL == "" {
		w.AuthURL = w.BaseURL
	}
	if w.CheckoutURL == "" {
		w.CheckoutURL = w.BaseURL
	}
	if w.VerificationURL == "" {
		w.VerificationURL = w.BaseURL
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CWP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CWP_REDIS_ADDR"`
	Password     string        `envconfig:"CWP_REDIS_PASSWORD"`
	DB           int           `envconfig:"CWP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CWP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CWP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CWP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CWP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CWP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	JWTSecret  string `envconfig:"CWP_SESSION_JWT_SECRET" required:"true"`
	JWTIssuer  string `envconfig:"CWP_SESSION_JWT_ISSUER" default:"cwp-storefront"`
	TTLMinutes int    `envconfig:"CWP_SESSION_TTL_MINUTES" default:"10080"`
}

// TTL returns the session lifetime configured in minutes.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type CartConfig struct {
	TTL           time.Duration `envconfig:"CWP_CART_TTL" default:"720h"`
	SubmitLockTTL time.Duration `envconfig:"CWP_CART_SUBMIT_LOCK_TTL" default:"30s"`
}

type SyncConfig struct {
	Interval time.Duration `envconfig:"CWP_SYNC_INTERVAL" default:"24h"`
	LockKey  string        `envconfig:"CWP_SYNC_LOCK_KEY" default:"cwp:cron:sync"`
	LockTTL  time.Duration `envconfig:"CWP_SYNC_LOCK_TTL" default:"25h"`
	Port     string        `envconfig:"CWP_SYNC_METRICS_PORT" default:"9090"`
}

type HandnotesConfig struct {
	Dir string `envconfig:"CWP_HANDNOTES_DIR" default:"./handnotes"`
}
