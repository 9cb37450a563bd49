package domain

import (
	"context"
	"math"
	"slices"
)

// DefaultConvergenceLadder 收敛分析默认的路径数阶梯
var DefaultConvergenceLadder = []int{1000, 2000, 5000, 10000, 20000, 50000}

// ConvergencePoint 某一路径数下的蒙特卡洛估计
type ConvergencePoint struct {
	Paths    int                `json:"paths"`
	Estimate MonteCarloEstimate `json:"estimate"`
}

// SeriesPoint 收敛序列上的一个点
type SeriesPoint struct {
	Paths int     `json:"paths"`
	Value float64 `json:"value"`
}

// ConvergencePathCounts 保留阶梯中不超过 maxPaths 的值并追加 maxPaths，升序去重
// ladder 为空时使用 DefaultConvergenceLadder
func ConvergencePathCounts(maxPaths int, ladder []int) []int {
	if len(ladder) == 0 {
		ladder = DefaultConvergenceLadder
	}
	counts := make([]int, 0, len(ladder)+1)
	for _, n := range ladder {
		if n <= maxPaths {
			counts = append(counts, n)
		}
	}
	counts = append(counts, maxPaths)
	slices.Sort(counts)
	return slices.Compact(counts)
}

// ConvergenceSweep 在每个路径数上用相同种子和参数重新运行蒙特卡洛
// sim.Paths 作为 maxPaths
func (e *MonteCarloEngine) ConvergenceSweep(ctx context.Context, payoff Payoff, market MarketParams, maturity float64, sim SimulationParams, ladder []int) ([]ConvergencePoint, error) {
	if err := validateSimulation(payoff, market, maturity, sim, 2); err != nil {
		return nil, err
	}

	counts := ConvergencePathCounts(sim.Paths, ladder)
	if counts[0] < 2 {
		return nil, invalidParameter("ladder", float64(counts[0]), "every path count must be >= 2")
	}

	points := make([]ConvergencePoint, 0, len(counts))
	for _, n := range counts {
		run := sim
		run.Paths = n
		est, err := e.PriceWithStats(ctx, payoff, market, maturity, run)
		if err != nil {
			return nil, err
		}
		points = append(points, ConvergencePoint{Paths: n, Estimate: est})
	}
	return points, nil
}

// ConvergenceSweep 单线程收敛分析
func ConvergenceSweep(payoff Payoff, market MarketParams, maturity float64, sim SimulationParams, ladder []int) ([]ConvergencePoint, error) {
	return defaultEngine.ConvergenceSweep(context.Background(), payoff, market, maturity, sim, ladder)
}

// PriceSeries 取出每个点的价格
func PriceSeries(points []ConvergencePoint) []SeriesPoint {
	out := make([]SeriesPoint, len(points))
	for i, p := range points {
		out[i] = SeriesPoint{Paths: p.Paths, Value: p.Estimate.Price}
	}
	return out
}

// AbsErrorSeries 每个点相对参考价格的绝对误差 |mc - reference|
func AbsErrorSeries(points []ConvergencePoint, reference float64) []SeriesPoint {
	out := make([]SeriesPoint, len(points))
	for i, p := range points {
		out[i] = SeriesPoint{Paths: p.Paths, Value: math.Abs(p.Estimate.Price - reference)}
	}
	return out
}
