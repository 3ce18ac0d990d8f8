package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codewithpritom/lms-storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace  = "cwp"
	cartPrefix    = "cart"
	sessionPrefix = "session"
	userPrefix    = "user"
	syncPrefix    = "sync"
	lockPrefix    = "lock"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	SMembers(context.Context, string) *redis.StringSliceCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the storefront.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// SAdd adds members to the set stored at key.
func (c *Client) SAdd(ctx context.Context, key string, members ...any) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.SAdd(ctx, key, members...).Err()
}

// SMembers returns every member of the set stored at key.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	if c.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.store.SMembers(ctx, key).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// IsMissing reports whether the error signals an absent key.
func IsMissing(err error) bool {
	return errors.Is(err, redis.Nil)
}

// CartKey returns the namespaced key holding an owner's cart state.
func (c *Client) CartKey(owner string) string {
	return c.buildKey(cartPrefix, owner)
}

// SessionKey returns the namespaced key for a session record.
func (c *Client) SessionKey(sessionID string) string {
	return c.buildKey(sessionPrefix, sessionID)
}

// UserKey returns the namespaced key for a stored user profile.
func (c *Client) UserKey(email string) string {
	return c.buildKey(userPrefix, strings.ToLower(email))
}

// SyncUsersKey returns the set of emails known to the daily sync job.
func (c *Client) SyncUsersKey() string {
	return c.buildKey(syncPrefix, "users")
}

// SyncDoneKey returns the per-user per-day sync idempotency key.
func (c *Client) SyncDoneKey(email, date string) string {
	return c.buildKey(syncPrefix, "done", strings.ToLower(email), date)
}

// SubmitLockKey returns the per-owner order submission lock key.
func (c *Client) SubmitLockKey(owner string) string {
	return c.buildKey(lockPrefix, "submit", owner)
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
