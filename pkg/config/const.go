package config

const EnvPrefix = "CWP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "CWP_APP_ENV"
	EnvPort       = "CWP_APP_PORT"
	EnvRedisURL   = "CWP_REDIS_URL"
	EnvWebhookURL = "CWP_WEBHOOK_URL"
	EnvJWTSecret  = "CWP_SESSION_JWT_SECRET"
)
