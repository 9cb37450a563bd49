// Package domain 行情快照的领域模型：历史收盘价、年化已实现波动率、快照来源与缓存接口
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// MinLookbackDays 估计波动率所需的最少回看天数
	MinLookbackDays = 30
	// MinCloses 最少收盘价个数
	MinCloses = 30
	// MinReturns 最少对数收益个数
	MinReturns = 20
	// TradingDaysPerYear 年化因子
	TradingDaysPerYear = 252
	// HistoryPaddingDays 拉取历史时在回看天数之外多取的天数
	HistoryPaddingDays = 5
)

var (
	// ErrDataUnavailable 行情源不可用或返回的数据不足
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInvalidRequest 代码或回看天数不合法
	ErrInvalidRequest = errors.New("invalid market data request")
)

// MarketSnapshot 行情快照
type MarketSnapshot struct {
	Ticker               string    `json:"ticker"`
	Spot                 float64   `json:"spot"`
	AnnualizedVolatility float64   `json:"annualized_volatility"`
	Observations         int       `json:"observations"`
	AsOf                 time.Time `json:"as_of"`
}

// HistoryProvider 日收盘价来源
type HistoryProvider interface {
	// DailyCloses 返回最近 days 天的日收盘价，按时间升序
	DailyCloses(ctx context.Context, ticker string, days int) ([]float64, error)
}

// SnapshotCache 快照缓存
type SnapshotCache interface {
	Get(ctx context.Context, ticker string, lookbackDays int) (*MarketSnapshot, error)
	Set(ctx context.Context, lookbackDays int, snapshot MarketSnapshot) error
}

// NormalizeTicker 去除首尾空白并转为大写
func NormalizeTicker(ticker string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return "", fmt.Errorf("%w: ticker must not be empty", ErrInvalidRequest)
	}
	return symbol, nil
}

// ValidateLookback 回看天数至少 MinLookbackDays
func ValidateLookback(days int) error {
	if days < MinLookbackDays {
		return fmt.Errorf("%w: lookback_days must be >= %d, got %d", ErrInvalidRequest, MinLookbackDays, days)
	}
	return nil
}

// EstimateVolatility 由日收盘价估计年化波动率：对数收益的无偏标准差乘以 sqrt(252)
// 返回波动率与参与计算的收益个数
func EstimateVolatility(closes []float64) (float64, int, error) {
	if len(closes) < MinCloses {
		return 0, 0, fmt.Errorf("%w: need at least %d closes, got %d", ErrDataUnavailable, MinCloses, len(closes))
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < MinReturns {
		return 0, len(returns), fmt.Errorf("%w: need at least %d log returns, got %d", ErrDataUnavailable, MinReturns, len(returns))
	}

	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear), len(returns), nil
}

// NewSnapshot 由收盘价序列构造快照，现价取最后一个收盘价
func NewSnapshot(ticker string, closes []float64, asOf time.Time) (MarketSnapshot, error) {
	vol, _, err := EstimateVolatility(closes)
	if err != nil {
		return MarketSnapshot{}, fmt.Errorf("%s: %w", ticker, err)
	}
	spot := closes[len(closes)-1]
	if spot <= 0 || math.IsNaN(spot) || math.IsInf(spot, 0) {
		return MarketSnapshot{}, fmt.Errorf("%w: %s: invalid last close %v", ErrDataUnavailable, ticker, spot)
	}
	return MarketSnapshot{
		Ticker:               ticker,
		Spot:                 spot,
		AnnualizedVolatility: vol,
		Observations:         len(closes),
		AsOf:                 asOf.UTC(),
	}, nil
}
