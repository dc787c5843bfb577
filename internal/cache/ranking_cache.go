package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

const (
	rankingKeyPrefix = "keyword_rankings:"
	dateLayout       = "2006-01-02"
	scanBatch        = 100
)

// RankingCache is a Redis cache-aside layer for daily ranking views.
// A RankingCache with a nil client is valid and behaves as an always-miss cache.
type RankingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRankingCache connects to redisURL. An empty URL, an invalid URL or a failed
// ping yields a disabled cache instead of an error.
func NewRankingCache(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) *RankingCache {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ranking_cache")

	if redisURL == "" {
		logger.Info("redis URL not configured, ranking cache disabled")
		return &RankingCache{logger: logger}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis URL, ranking cache disabled", "error", err)
		return &RankingCache{logger: logger}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, ranking cache disabled", "error", err)
		_ = rdb.Close()
		return &RankingCache{logger: logger}
	}

	logger.Info("redis connected, ranking cache enabled")
	return NewRankingCacheWithClient(rdb, ttl, logger)
}

// NewRankingCacheWithClient wraps an existing client
func NewRankingCacheWithClient(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RankingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached
func (c *RankingCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Client returns the underlying client for health checks. May be nil.
func (c *RankingCache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Get returns the cached views for date; ok is false on a miss
func (c *RankingCache) Get(ctx context.Context, date time.Time) ([]model.KeywordRankingView, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	data, err := c.rdb.Get(ctx, rankingKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get rankings: %w", err)
	}

	var views []model.KeywordRankingView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, false, fmt.Errorf("decode cached rankings: %w", err)
	}
	return views, true, nil
}

// Set stores the views for date
func (c *RankingCache) Set(ctx context.Context, date time.Time, views []model.KeywordRankingView) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("encode rankings: %w", err)
	}
	return c.rdb.Set(ctx, rankingKey(date), data, c.ttl).Err()
}

// Invalidate removes every cached ranking view
func (c *RankingCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	var removed int64
	iter := c.rdb.Scan(ctx, 0, rankingKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("redis delete rankings: %w", err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan rankings: %w", err)
	}

	c.logger.Debug("ranking cache invalidated", "keys", removed)
	return nil
}

// Close shuts down the Redis connection
func (c *RankingCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func rankingKey(date time.Time) string {
	return rankingKeyPrefix + date.Format(dateLayout)
}
