package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/pkg/cache"
)

// SnapshotCache 基于 cache.Cache 的快照读模型，Redis 与进程内缓存均可作为后端
type SnapshotCache struct {
	store  cache.Cache
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(store cache.Cache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		store:  store,
		prefix: "marketdata:snapshot:",
		ttl:    ttl,
	}
}

// Key 缓存键：marketdata:snapshot:<TICKER>:<lookback>
func (c *SnapshotCache) Key(ticker string, lookbackDays int) string {
	return fmt.Sprintf("%s%s:%d", c.prefix, ticker, lookbackDays)
}

// Get 未命中时返回 nil
func (c *SnapshotCache) Get(ctx context.Context, ticker string, lookbackDays int) (*domain.MarketSnapshot, error) {
	var snap domain.MarketSnapshot
	ok, err := c.store.GetJSON(ctx, c.Key(ticker, lookbackDays), &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from cache: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Set 写入快照
func (c *SnapshotCache) Set(ctx context.Context, lookbackDays int, snapshot domain.MarketSnapshot) error {
	if err := c.store.SetJSON(ctx, c.Key(snapshot.Ticker, lookbackDays), snapshot, c.ttl); err != nil {
		return fmt.Errorf("failed to set snapshot cache: %w", err)
	}
	return nil
}
