package domain

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// ciZ 95% 双侧置信区间的正态分位数
	ciZ = 1.96
	// DefaultBlockSize 并行模式下每个 block 模拟的路径数
	DefaultBlockSize = 8192
	// blockStreamBase 并行 block 随机流编号的起点，与顺序模式的流 0 区分
	blockStreamBase uint64 = 0x9e3779b97f4a7c15
)

// SimulationParams 蒙特卡洛模拟参数
type SimulationParams struct {
	// 模拟路径数
	Paths int
	// 随机种子，nil 表示每次使用新的不可复现随机流
	Seed *int64
	// 时间步数，>= 1
	Steps int
	// 是否使用对偶变量
	Antithetic bool
}

// Seed 返回固定种子
func Seed(v int64) *int64 {
	return &v
}

// MonteCarloEstimate 蒙特卡洛估计结果
type MonteCarloEstimate struct {
	Price         float64 `json:"price"`
	StandardError float64 `json:"standard_error"`
	CILow         float64 `json:"ci_low"`
	CIHigh        float64 `json:"ci_high"`
	// 模拟的路径数
	Paths int `json:"paths"`
	// 参与统计的独立样本数；对偶模式下每对路径合并为一个样本
	Samples int `json:"samples"`
}

// Contains 报告 v 是否落在 95% 置信区间内
func (e MonteCarloEstimate) Contains(v float64) bool {
	return v >= e.CILow && v <= e.CIHigh
}

// newEstimate 标准误取自独立样本；价格按路径加权，pairs 为 true 时除最后一个奇数路径外每个样本代表两条路径
func newEstimate(samples []float64, paths int, pairs bool) MonteCarloEstimate {
	_, variance := stat.MeanVariance(samples, nil)
	if variance < 0 {
		variance = 0
	}
	mean := pathMean(samples, paths, pairs)
	se := math.Sqrt(variance / float64(len(samples)))
	return MonteCarloEstimate{
		Price:         mean,
		StandardError: se,
		CILow:         mean - ciZ*se,
		CIHigh:        mean + ciZ*se,
		Paths:         paths,
		Samples:       len(samples),
	}
}

func pathMean(samples []float64, paths int, pairs bool) float64 {
	if !pairs || paths%2 == 0 {
		return stat.Mean(samples, nil)
	}
	last := len(samples) - 1
	return (2*floats.Sum(samples[:last]) + samples[last]) / float64(paths)
}

// NewRandomStream 创建本次定价独占的随机流；seed 为 nil 时使用随机种子
func NewRandomStream(seed *int64) *rand.Rand {
	return newStream(baseSeed(seed), 0)
}

func baseSeed(seed *int64) uint64 {
	if seed != nil {
		return uint64(*seed)
	}
	return rand.Uint64()
}

func newStream(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// SimulateTerminalPrice 在风险中性 GBM 下模拟一个到期价格，每步使用精确解
func SimulateTerminalPrice(rng *rand.Rand, market MarketParams, maturity float64, steps int) (float64, error) {
	if rng == nil {
		return 0, invalidField("rng", "must not be nil")
	}
	if err := market.Validate(); err != nil {
		return 0, err
	}
	if err := requirePositive("maturity", maturity); err != nil {
		return 0, err
	}
	if steps < 1 {
		return 0, invalidParameter("steps", float64(steps), "must be >= 1")
	}
	sim := newPathSimulator(nil, market, maturity, steps)
	sim.draw(rng)
	return sim.terminal(1), nil
}

// pathSimulator 持有一次定价的预计算常量与正态数缓冲区，不可跨 goroutine 共享
type pathSimulator struct {
	payoff    Payoff
	spot      float64
	drift     float64
	diffusion float64
	discount  float64
	normals   []float64
}

func newPathSimulator(payoff Payoff, market MarketParams, maturity float64, steps int) *pathSimulator {
	dt := maturity / float64(steps)
	return &pathSimulator{
		payoff:    payoff,
		spot:      market.Spot,
		drift:     (market.Rate - 0.5*market.Volatility*market.Volatility) * dt,
		diffusion: market.Volatility * math.Sqrt(dt),
		discount:  math.Exp(-market.Rate * maturity),
		normals:   make([]float64, steps),
	}
}

func (s *pathSimulator) clone() *pathSimulator {
	c := *s
	c.normals = make([]float64, len(s.normals))
	return &c
}

func (s *pathSimulator) draw(rng *rand.Rand) {
	for i := range s.normals {
		s.normals[i] = rng.NormFloat64()
	}
}

// terminal 用当前正态数（sign=-1 时取镜像）推进整条路径
func (s *pathSimulator) terminal(sign float64) float64 {
	st := s.spot
	for _, z := range s.normals {
		st *= math.Exp(s.drift + s.diffusion*(sign*z))
	}
	return st
}

func (s *pathSimulator) discounted(sign float64) float64 {
	return s.discount * s.payoff.Evaluate(s.terminal(sign))
}

// run 模拟 n 条路径，每个统计样本调用一次 emit，weight 为样本代表的路径数
// 对偶模式下 n/2 对路径各产生一个均值样本，n 为奇数时追加一条普通路径
func (s *pathSimulator) run(rng *rand.Rand, n int, antithetic bool, emit func(v, weight float64)) {
	if !antithetic {
		for range n {
			s.draw(rng)
			emit(s.discounted(1), 1)
		}
		return
	}
	for range n / 2 {
		s.draw(rng)
		emit(0.5*(s.discounted(1)+s.discounted(-1)), 2)
	}
	if n%2 == 1 {
		s.draw(rng)
		emit(s.discounted(1), 1)
	}
}

// runPerPath 与对偶模式的 run 消费相同的随机数，但每对路径拆成两个样本
func (s *pathSimulator) runPerPath(rng *rand.Rand, n int, emit func(float64)) {
	for range n / 2 {
		s.draw(rng)
		emit(s.discounted(1))
		emit(s.discounted(-1))
	}
	if n%2 == 1 {
		s.draw(rng)
		emit(s.discounted(1))
	}
}

// sampleCount n 条路径产生的统计样本数
func sampleCount(n int, antithetic bool) int {
	if !antithetic {
		return n
	}
	return n/2 + n%2
}

// EngineOption 蒙特卡洛引擎选项
type EngineOption func(*MonteCarloEngine)

// WithWorkers 设置并行 worker 数，<= 1 为单线程参考实现
func WithWorkers(n int) EngineOption {
	return func(e *MonteCarloEngine) {
		e.workers = n
	}
}

// WithBlockSize 设置并行 block 的路径数，奇数向上取偶以保持对偶配对
func WithBlockSize(n int) EngineOption {
	return func(e *MonteCarloEngine) {
		if n <= 0 {
			return
		}
		e.blockSize = n + n%2
	}
}

// MonteCarloEngine 风险中性 GBM 蒙特卡洛定价引擎
//
// 单线程模式下一次定价只消费一个随机流，给定种子时结果逐位可复现。
// 并行模式下路径按 blockSize 切分，第 i 个 block 使用由 (seed, i) 派生的独立随机流，
// 样本按 block 顺序写回，因此给定种子与 blockSize 时结果与 worker 数无关，
// 但与单线程模式的数值不同。
type MonteCarloEngine struct {
	workers   int
	blockSize int
}

// NewMonteCarloEngine 创建引擎，默认单线程
func NewMonteCarloEngine(opts ...EngineOption) *MonteCarloEngine {
	e := &MonteCarloEngine{workers: 1, blockSize: DefaultBlockSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parallel 是否启用并行模式
func (e *MonteCarloEngine) Parallel() bool {
	return e.workers > 1
}

var defaultEngine = NewMonteCarloEngine()

// PriceMC 单线程计算折现收益的蒙特卡洛均值
func PriceMC(payoff Payoff, market MarketParams, maturity float64, sim SimulationParams) (float64, error) {
	return defaultEngine.Price(context.Background(), payoff, market, maturity, sim)
}

// PriceMCStats 单线程计算蒙特卡洛价格、标准误与 95% 置信区间
func PriceMCStats(payoff Payoff, market MarketParams, maturity float64, sim SimulationParams) (MonteCarloEstimate, error) {
	return defaultEngine.PriceWithStats(context.Background(), payoff, market, maturity, sim)
}

// Price 只返回均值，不保留样本
func (e *MonteCarloEngine) Price(ctx context.Context, payoff Payoff, market MarketParams, maturity float64, sim SimulationParams) (float64, error) {
	if err := validateSimulation(payoff, market, maturity, sim, 1); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s := newPathSimulator(payoff, market, maturity, sim.Steps)

	if !e.Parallel() {
		var sum float64
		s.run(NewRandomStream(sim.Seed), sim.Paths, sim.Antithetic, func(v, weight float64) {
			sum += weight * v
		})
		return sum / float64(sim.Paths), nil
	}

	blocks := e.blockCount(sim.Paths)
	sums := make([]float64, blocks)
	err := e.forEachBlock(ctx, s, sim, func(b int, local *pathSimulator, rng *rand.Rand, size int) {
		var sum float64
		local.run(rng, size, sim.Antithetic, func(v, weight float64) {
			sum += weight * v
		})
		sums[b] = sum
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, v := range sums {
		total += v
	}
	return total / float64(sim.Paths), nil
}

// PriceWithStats 保留全部折现样本并计算价格、标准误与 95% 置信区间
// 对偶模式下每对路径的均值作为一个样本；只有一对路径时退化为逐路径样本以得到有限的标准误
func (e *MonteCarloEngine) PriceWithStats(ctx context.Context, payoff Payoff, market MarketParams, maturity float64, sim SimulationParams) (MonteCarloEstimate, error) {
	if err := validateSimulation(payoff, market, maturity, sim, 2); err != nil {
		return MonteCarloEstimate{}, err
	}
	if err := ctx.Err(); err != nil {
		return MonteCarloEstimate{}, err
	}

	s := newPathSimulator(payoff, market, maturity, sim.Steps)
	count := sampleCount(sim.Paths, sim.Antithetic)

	if sim.Antithetic && count < 2 {
		rng := NewRandomStream(sim.Seed)
		if e.Parallel() {
			rng = newStream(baseSeed(sim.Seed), blockStreamBase)
		}
		samples := make([]float64, 0, sim.Paths)
		s.runPerPath(rng, sim.Paths, func(v float64) {
			samples = append(samples, v)
		})
		return newEstimate(samples, sim.Paths, false), nil
	}

	if !e.Parallel() {
		samples := make([]float64, 0, count)
		s.run(NewRandomStream(sim.Seed), sim.Paths, sim.Antithetic, func(v, _ float64) {
			samples = append(samples, v)
		})
		return newEstimate(samples, sim.Paths, sim.Antithetic), nil
	}

	samples := make([]float64, count)
	err := e.forEachBlock(ctx, s, sim, func(b int, local *pathSimulator, rng *rand.Rand, size int) {
		idx := sampleCount(b*e.blockSize, sim.Antithetic)
		local.run(rng, size, sim.Antithetic, func(v, _ float64) {
			samples[idx] = v
			idx++
		})
	})
	if err != nil {
		return MonteCarloEstimate{}, err
	}
	return newEstimate(samples, sim.Paths, sim.Antithetic), nil
}

func (e *MonteCarloEngine) blockCount(paths int) int {
	return (paths + e.blockSize - 1) / e.blockSize
}

// forEachBlock 以至多 workers 个 goroutine 执行所有 block，block 之间检查 ctx
func (e *MonteCarloEngine) forEachBlock(ctx context.Context, s *pathSimulator, sim SimulationParams,
	fn func(b int, local *pathSimulator, rng *rand.Rand, size int)) error {
	base := baseSeed(sim.Seed)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for b := range e.blockCount(sim.Paths) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := b * e.blockSize
			size := min(e.blockSize, sim.Paths-start)
			fn(b, s.clone(), newStream(base, blockStreamBase+uint64(b)), size)
			return nil
		})
	}
	return g.Wait()
}

func validateSimulation(payoff Payoff, market MarketParams, maturity float64, sim SimulationParams, minPaths int) error {
	if payoff == nil {
		return invalidField("payoff", "must not be nil")
	}
	if err := market.Validate(); err != nil {
		return err
	}
	if err := requirePositive("maturity", maturity); err != nil {
		return err
	}
	if sim.Paths < minPaths {
		return invalidParameter("paths", float64(sim.Paths), fmt.Sprintf("must be >= %d", minPaths))
	}
	if sim.Steps < 1 {
		return invalidParameter("steps", float64(sim.Steps), "must be >= 1")
	}
	return nil
}
