package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/codewithpritom/lms-storefront/api/responses"
	"github.com/codewithpritom/lms-storefront/pkg/config"
	redisclient "github.com/codewithpritom/lms-storefront/pkg/redis"
)

var startedAt = time.Now()

// Health reports liveness, whether the automation webhook is configured, and
// cart-store reachability. A failed cache ping degrades the status and the
// HTTP code so load balancers can rotate the instance out.
func Health(cfg *config.Config, cache redisclient.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		httpStatus := http.StatusOK
		cacheStatus := "ok"
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
				cacheStatus = "unreachable"
			}
		}

		responses.WriteSuccessStatus(w, httpStatus, map[string]any{
			"status":             status,
			"uptime_seconds":     int64(time.Since(startedAt).Seconds()),
			"timestamp":          time.Now().UTC().Format(time.RFC3339),
			"webhook_configured": strings.TrimSpace(cfg.Webhook.BaseURL) != "",
			"cache":              cacheStatus,
		})
	}
}
