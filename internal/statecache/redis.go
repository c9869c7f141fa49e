package statecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solana-captable/internal/domain"
	"solana-captable/internal/observability"
)

// DefaultTTL bounds staleness when an invalidation is lost (a crashed
// process between append and invalidate).
const DefaultTTL = 5 * time.Minute

// RedisCache is the Redis-backed Cache implementation. Values are
// JSON-encoded TokenStates under captable:state:<token>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Options configures a RedisCache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to Redis at %s: %w", opts.Addr, err)
	}

	return &RedisCache{client: client, ttl: opts.TTL, logger: opts.Logger}, nil
}

func cacheKey(tokenID string) string {
	return "captable:state:" + tokenID
}

// Get returns the cached state for a token. Errors and decode failures count
// as misses.
func (c *RedisCache) Get(ctx context.Context, tokenID string) (*domain.TokenState, bool) {
	data, err := c.client.Get(ctx, cacheKey(tokenID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("state cache read failed", zap.String("token", tokenID), zap.Error(err))
		}
		observability.DefaultMetrics.StateCacheMisses.Inc()
		return nil, false
	}

	var state domain.TokenState
	if err := json.Unmarshal(data, &state); err != nil {
		c.logger.Debug("state cache decode failed", zap.String("token", tokenID), zap.Error(err))
		observability.DefaultMetrics.StateCacheMisses.Inc()
		return nil, false
	}
	observability.DefaultMetrics.StateCacheHits.Inc()
	return &state, true
}

// Set stores the state with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, state *domain.TokenState) {
	data, err := json.Marshal(state)
	if err != nil {
		c.logger.Debug("state cache encode failed", zap.String("token", state.TokenID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(state.TokenID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("state cache write failed", zap.String("token", state.TokenID), zap.Error(err))
	}
}

// Invalidate drops the cached state for a token.
func (c *RedisCache) Invalidate(ctx context.Context, tokenID string) {
	if err := c.client.Del(ctx, cacheKey(tokenID)).Err(); err != nil {
		c.logger.Debug("state cache invalidate failed", zap.String("token", tokenID), zap.Error(err))
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
