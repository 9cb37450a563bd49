package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometricSeries(n int, start, growth float64) []float64 {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * growth
	}
	return closes
}

func TestEstimateVolatility_ConstantGrowth(t *testing.T) {
	vol, n, err := EstimateVolatility(geometricSeries(40, 100, 1.001))
	require.NoError(t, err)
	assert.Equal(t, 39, n)
	assert.InDelta(t, 0.0, vol, 1e-9)
}

func TestEstimateVolatility_MatchesManualComputation(t *testing.T) {
	closes := make([]float64, 31)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] * 1.01
		} else {
			closes[i] = closes[i-1] / 1.01
		}
	}

	returns := make([]float64, 0, 30)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(ss/float64(len(returns)-1)) * math.Sqrt(252)

	vol, n, err := EstimateVolatility(closes)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.InDelta(t, want, vol, 1e-12)
}

func TestEstimateVolatility_InsufficientData(t *testing.T) {
	_, _, err := EstimateVolatility(geometricSeries(29, 100, 1.01))
	assert.ErrorIs(t, err, ErrDataUnavailable)

	// 非正价格被跳过，剩余收益不足
	closes := geometricSeries(35, 100, 1.01)
	for i := 0; i < len(closes); i += 2 {
		closes[i] = 0
	}
	_, _, err = EstimateVolatility(closes)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestNewSnapshot(t *testing.T) {
	closes := geometricSeries(35, 50, 1.002)
	asOf := time.Date(2026, 3, 2, 15, 0, 0, 0, time.FixedZone("X", 3600))

	snap, err := NewSnapshot("MSFT", closes, asOf)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", snap.Ticker)
	assert.Equal(t, closes[34], snap.Spot)
	assert.Equal(t, 35, snap.Observations)
	assert.Equal(t, time.UTC, snap.AsOf.Location())

	_, err = NewSnapshot("MSFT", closes[:10], asOf)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestNormalizeTickerAndLookback(t *testing.T) {
	symbol, err := NormalizeTicker("  spy ")
	require.NoError(t, err)
	assert.Equal(t, "SPY", symbol)

	_, err = NormalizeTicker("   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.NoError(t, ValidateLookback(30))
	assert.ErrorIs(t, ValidateLookback(29), ErrInvalidRequest)
}
