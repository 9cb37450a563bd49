// Package metrics 提供 Prometheus 指标集合，包含 HTTP、定价与行情相关的 counter/histogram
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/structuredpricing/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 定价次数（按产品、方法）
	PricingRunsTotal *prometheus.CounterVec
	// 定价失败次数
	PricingErrorsTotal *prometheus.CounterVec
	// 定价耗时
	PricingDuration *prometheus.HistogramVec
	// 蒙特卡洛模拟路径总数
	MonteCarloPathsTotal prometheus.Counter

	// 行情快照拉取次数（按结果）
	MarketDataFetchesTotal *prometheus.CounterVec
	// 快照缓存命中次数
	SnapshotCacheHitsTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		PricingRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "pricing_runs_total",
			Help:      "Total pricing runs by product and method",
		}, []string{"product", "method"}),
		PricingErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "pricing_errors_total",
			Help:      "Total failed pricing requests by product",
		}, []string{"product"}),
		PricingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "pricing_duration_seconds",
			Help:      "Pricing duration in seconds",
			Buckets:   []float64{0.0005, 0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"product", "method"}),
		MonteCarloPathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "monte_carlo_paths_total",
			Help:      "Total simulated Monte Carlo samples",
		}),
		MarketDataFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "market_data_fetches_total",
			Help:      "Total market data fetches by outcome",
		}, []string{"outcome"}),
		SnapshotCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "structured",
			Subsystem: serviceName,
			Name:      "snapshot_cache_hits_total",
			Help:      "Total market snapshot cache hits",
		}),
	}
}

// Register 注册所有指标，reg 为 nil 时使用默认注册表
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PricingRunsTotal,
		m.PricingErrorsTotal,
		m.PricingDuration,
		m.MonteCarloPathsTotal,
		m.MarketDataFetchesTotal,
		m.SnapshotCacheHitsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordPricing 记录一次定价
func (m *Metrics) RecordPricing(product, method string, seconds float64) {
	if m == nil {
		return
	}
	m.PricingRunsTotal.WithLabelValues(product, method).Inc()
	m.PricingDuration.WithLabelValues(product, method).Observe(seconds)
}

// RecordPricingError 记录定价失败
func (m *Metrics) RecordPricingError(product string) {
	if m == nil {
		return
	}
	m.PricingErrorsTotal.WithLabelValues(product).Inc()
}

// AddMonteCarloPaths 累加模拟路径数
func (m *Metrics) AddMonteCarloPaths(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MonteCarloPathsTotal.Add(float64(n))
}

// RecordMarketDataFetch 记录行情拉取结果：ok, error, cache_hit
func (m *Metrics) RecordMarketDataFetch(outcome string) {
	if m == nil {
		return
	}
	m.MarketDataFetchesTotal.WithLabelValues(outcome).Inc()
	if outcome == "cache_hit" {
		m.SnapshotCacheHitsTotal.Inc()
	}
}
