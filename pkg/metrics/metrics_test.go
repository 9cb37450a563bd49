package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New("pricing")
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.RecordPricing("call", "monte_carlo", 0.2)
	m.RecordPricing("call", "monte_carlo", 0.1)
	m.RecordPricingError("autocall")
	m.AddMonteCarloPaths(50000)
	m.AddMonteCarloPaths(-1)
	m.RecordMarketDataFetch("cache_hit")
	m.RecordMarketDataFetch("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PricingRunsTotal.WithLabelValues("call", "monte_carlo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingErrorsTotal.WithLabelValues("autocall")))
	assert.Equal(t, 50000.0, testutil.ToFloat64(m.MonteCarloPathsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotCacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MarketDataFetchesTotal.WithLabelValues("ok")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPricing("call", "analytic", 0.01)
		m.RecordPricingError("call")
		m.AddMonteCarloPaths(10)
		m.RecordMarketDataFetch("error")
		m.RecordHTTPRequest("GET", "/health", 200, 0.001)
	})
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, New("pricing").Register(reg))
	assert.Error(t, New("pricing").Register(reg))
}
