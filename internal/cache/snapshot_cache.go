package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/config"
	"github.com/nicefood/prodtrack/internal/service/consumption"
)

const (
	snapshotKeyPrefix  = "prodtrack:snapshot"
	scanBatchSize      = 100
	defaultSnapshotTTL = 5 * time.Minute
)

// SnapshotCache keeps raw period snapshots so re-aggregating a different day
// does not reload the collections. Ledger writes invalidate it.
type SnapshotCache interface {
	consumption.SnapshotCache
	Invalidate(ctx context.Context, section, periodKey string) error
	Close() error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type noopSnapshotCache struct{}

// NewSnapshotCache connects to redis when the cache is enabled and returns a
// no-op cache otherwise.
func NewSnapshotCache(cfg config.CacheConfig, logger *zap.Logger) (SnapshotCache, error) {
	if !cfg.Enabled {
		return NewNoopSnapshotCache(), nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("snapshot cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", snapshotTTL(cfg)))
	return &redisSnapshotCache{client: client, ttl: snapshotTTL(cfg), logger: logger}, nil
}

// NewNoopSnapshotCache returns a cache that never hits.
func NewNoopSnapshotCache() SnapshotCache {
	return noopSnapshotCache{}
}

func (c *redisSnapshotCache) Get(ctx context.Context, section, periodKey string) (consumption.Snapshot, bool, error) {
	payload, err := c.client.Get(ctx, snapshotKey(section, periodKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return consumption.Snapshot{}, false, nil
	}
	if err != nil {
		return consumption.Snapshot{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snap consumption.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// A payload from an older layout is treated as a miss.
		c.logger.Warn("discard undecodable snapshot", zap.String("section", section), zap.String("period", periodKey), zap.Error(err))
		return consumption.Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, section, periodKey string, snap consumption.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(section, periodKey), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot of one period, or every period of the
// section when periodKey is empty.
func (c *redisSnapshotCache) Invalidate(ctx context.Context, section, periodKey string) error {
	if periodKey == "" {
		return deleteKeysWithPrefix(ctx, c.client, snapshotKeyPrefix+":"+section+":", scanBatchSize)
	}
	if err := c.client.Del(ctx, snapshotKey(section, periodKey)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *redisSnapshotCache) Close() error {
	return c.client.Close()
}

func (noopSnapshotCache) Get(context.Context, string, string) (consumption.Snapshot, bool, error) {
	return consumption.Snapshot{}, false, nil
}

func (noopSnapshotCache) Set(context.Context, string, string, consumption.Snapshot) error {
	return nil
}

func (noopSnapshotCache) Invalidate(context.Context, string, string) error { return nil }

func (noopSnapshotCache) Close() error { return nil }

func snapshotKey(section, periodKey string) string {
	return snapshotKeyPrefix + ":" + section + ":" + periodKey
}

func snapshotTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		return defaultSnapshotTTL
	}
	return ttl
}
