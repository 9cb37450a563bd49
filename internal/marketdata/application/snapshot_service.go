// Package application 行情快照用例：按代码拉取历史、估计波动率并缓存
package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
	"github.com/wyfcoding/structuredpricing/pkg/metrics"
)

// SnapshotService 行情快照服务
type SnapshotService struct {
	history domain.HistoryProvider
	cache   domain.SnapshotCache
	metrics *metrics.Metrics
	group   singleflight.Group
	now     func() time.Time
}

// NewSnapshotService 创建快照服务，cache 可为 nil
func NewSnapshotService(history domain.HistoryProvider, cache domain.SnapshotCache, m *metrics.Metrics) *SnapshotService {
	return &SnapshotService{
		history: history,
		cache:   cache,
		metrics: m,
		now:     time.Now,
	}
}

// FetchSnapshot 返回 (ticker, spot, 年化波动率) 快照
// 先查缓存，未命中时拉取 lookbackDays+5 天的日收盘价；同一 key 的并发请求只回源一次
func (s *SnapshotService) FetchSnapshot(ctx context.Context, ticker string, lookbackDays int) (*domain.MarketSnapshot, error) {
	if err := domain.ValidateLookback(lookbackDays); err != nil {
		return nil, err
	}
	symbol, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, symbol, lookbackDays)
		if err != nil {
			logger.Warn(ctx, "snapshot cache read failed", "ticker", symbol, "error", err)
		} else if cached != nil {
			s.metrics.RecordMarketDataFetch("cache_hit")
			return cached, nil
		}
	}

	key := symbol + ":" + strconv.Itoa(lookbackDays)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), symbol, lookbackDays)
	})
	if err != nil {
		s.metrics.RecordMarketDataFetch("error")
		return nil, err
	}
	snap := v.(domain.MarketSnapshot)
	return &snap, nil
}

func (s *SnapshotService) load(ctx context.Context, symbol string, lookbackDays int) (domain.MarketSnapshot, error) {
	defer logger.LogDuration(ctx, "market snapshot loaded", "ticker", symbol, "lookback_days", lookbackDays)()

	closes, err := s.history.DailyCloses(ctx, symbol, lookbackDays+domain.HistoryPaddingDays)
	if err != nil {
		if !errors.Is(err, domain.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, symbol, err)
		}
		logger.Error(ctx, "failed to fetch price history", "ticker", symbol, "error", err)
		return domain.MarketSnapshot{}, err
	}

	snap, err := domain.NewSnapshot(symbol, closes, s.now())
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	s.metrics.RecordMarketDataFetch("ok")

	if s.cache != nil {
		if err := s.cache.Set(ctx, lookbackDays, snap); err != nil {
			logger.Warn(ctx, "snapshot cache write failed", "ticker", symbol, "error", err)
		}
	}
	return snap, nil
}
