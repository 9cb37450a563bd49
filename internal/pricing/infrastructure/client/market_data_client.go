package client

import (
	"context"
	"errors"

	mddomain "github.com/wyfcoding/structuredpricing/internal/marketdata/domain"
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
)

// SnapshotFetcher 行情快照服务
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, ticker string, lookbackDays int) (*mddomain.MarketSnapshot, error)
}

// MarketDataClient 以进程内行情服务实现 domain.MarketQuoteProvider
type MarketDataClient struct {
	snapshots SnapshotFetcher
}

// NewMarketDataClient 创建行情客户端
func NewMarketDataClient(snapshots SnapshotFetcher) *MarketDataClient {
	return &MarketDataClient{snapshots: snapshots}
}

// Quote 返回现价与年化波动率；非法代码或回看天数映射为参数错误
func (c *MarketDataClient) Quote(ctx context.Context, ticker string, lookbackDays int) (domain.MarketQuote, error) {
	snap, err := c.snapshots.FetchSnapshot(ctx, ticker, lookbackDays)
	if err != nil {
		if errors.Is(err, mddomain.ErrInvalidRequest) {
			field := "ticker"
			if mddomain.ValidateLookback(lookbackDays) != nil {
				field = "lookback_days"
			}
			return domain.MarketQuote{}, domain.NewInvalidParameterError(field, err.Error())
		}
		return domain.MarketQuote{}, err
	}
	return domain.MarketQuote{
		Ticker:     snap.Ticker,
		Spot:       snap.Spot,
		Volatility: snap.AnnualizedVolatility,
	}, nil
}
