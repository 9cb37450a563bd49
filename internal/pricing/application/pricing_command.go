package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/pkg/config"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
	"github.com/wyfcoding/structuredpricing/pkg/metrics"
)

const publishTimeout = 3 * time.Second

// PricingCommandService 处理定价操作
// 解析价格总是计算，蒙特卡洛按请求开启；成功后记录指标并发布 PricingCompleted 事件
type PricingCommandService struct {
	cfg       config.PricingConfig
	engine    *domain.MonteCarloEngine
	query     *PricingQueryService
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
}

// NewPricingCommandService 创建新的 PricingCommandService 实例
func NewPricingCommandService(cfg config.PricingConfig, engine *domain.MonteCarloEngine, query *PricingQueryService,
	publisher domain.EventPublisher, m *metrics.Metrics) *PricingCommandService {
	if engine == nil {
		engine = domain.NewMonteCarloEngine(domain.WithWorkers(cfg.Workers), domain.WithBlockSize(cfg.BlockSize))
	}
	if publisher == nil {
		publisher = domain.NopEventPublisher{}
	}
	return &PricingCommandService{
		cfg:       cfg,
		engine:    engine,
		query:     query,
		publisher: publisher,
		metrics:   m,
	}
}

// PriceZeroCoupon 零息债券定价
func (c *PricingCommandService) PriceZeroCoupon(ctx context.Context, cmd PriceZeroCouponCommand) (*ZeroCouponResult, error) {
	start := time.Now()
	product := domain.ProductZeroCoupon

	nominal := cmd.Nominal
	if nominal == 0 {
		nominal = 1
	}
	if nominal < 0 {
		return nil, c.fail(ctx, product, domain.NewInvalidParameterError("nominal", "must be strictly positive"))
	}
	unit, err := domain.ZeroCoupon(cmd.Rate, cmd.Maturity)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}

	result := &ZeroCouponResult{
		Rate:      cmd.Rate,
		Maturity:  cmd.Maturity,
		Nominal:   nominal,
		UnitPrice: unit,
		Price:     nominal * unit,
	}

	event := domain.NewPricingCompletedEvent(product, domain.MarketParams{Rate: cmd.Rate}, cmd.Maturity, result.Price)
	c.complete(ctx, event, domain.MethodAnalytic, start)
	return result, nil
}

// PriceOption 期权定价：解析价、可选蒙特卡洛交叉验证与收敛序列、到期收益曲线
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*OptionPricingResult, error) {
	start := time.Now()

	kind, err := domain.ParseOptionType(cmd.Kind)
	if err != nil {
		return nil, c.fail(ctx, domain.ProductType(cmd.Kind), err)
	}
	market, ticker, err := c.query.ResolveMarket(ctx, cmd.Market)
	if err != nil {
		return nil, c.fail(ctx, kind, err)
	}

	payout, err := digitalPayout(kind, cmd.Payout)
	if err != nil {
		return nil, c.fail(ctx, kind, err)
	}
	analytic, err := analyticOptionPrice(kind, market, cmd.Strike, cmd.Maturity, payout)
	if err != nil {
		return nil, c.fail(ctx, kind, err)
	}
	payoff, err := optionPayoff(kind, cmd.Strike, payout)
	if err != nil {
		return nil, c.fail(ctx, kind, err)
	}
	profile, err := domain.PayoffProfile(payoff, market.Spot)
	if err != nil {
		return nil, c.fail(ctx, kind, err)
	}

	result := &OptionPricingResult{
		Product:       kind,
		Ticker:        ticker,
		Market:        market,
		Strike:        cmd.Strike,
		Maturity:      cmd.Maturity,
		Payout:        payout,
		AnalyticPrice: analytic,
		Profile:       profile,
	}

	event := domain.NewPricingCompletedEvent(kind, market, cmd.Maturity, analytic)
	event.Ticker = ticker
	event.Strike = cmd.Strike

	method := domain.MethodAnalytic
	if cmd.MonteCarlo.Enabled {
		mc, sim, err := c.crossCheck(ctx, payoff, market, cmd.Maturity, analytic, cmd.MonteCarlo)
		if err != nil {
			return nil, c.fail(ctx, kind, err)
		}
		result.MonteCarlo = mc
		event = event.WithMonteCarlo(mc.Estimate, sim)
		method = domain.MethodMonteCarlo
	}

	c.complete(ctx, event, method, start)
	return result, nil
}

// PriceAutocall autocall 定价：静态复制分解、可选蒙特卡洛交叉验证、到期收益曲线
func (c *PricingCommandService) PriceAutocall(ctx context.Context, cmd PriceAutocallCommand) (*AutocallPricingResult, error) {
	start := time.Now()
	product := domain.ProductAutocall

	market, ticker, err := c.query.ResolveMarket(ctx, cmd.Market)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}
	if err := market.Validate(); err != nil {
		return nil, c.fail(ctx, product, err)
	}
	decomposition, err := domain.DecomposeAutocall(market, cmd.Autocall)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}
	profile, err := c.query.AutocallProfile(cmd.Autocall, market.Spot)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}

	result := &AutocallPricingResult{
		Ticker:          ticker,
		Market:          market,
		Params:          cmd.Autocall,
		Price:           decomposition.Total(),
		Decomposition:   decomposition,
		StrikesInverted: cmd.Autocall.StrikesInverted(),
		Profile:         profile,
	}
	if result.StrikesInverted {
		logger.Warn(ctx, "autocall put strike is not below call strike",
			"strike_put", cmd.Autocall.StrikePut, "strike_call", cmd.Autocall.StrikeCall)
	}

	event := domain.NewPricingCompletedEvent(product, market, cmd.Autocall.Maturity, result.Price)
	event.Ticker = ticker
	event.Strike = cmd.Autocall.StrikeCall

	method := domain.MethodAnalytic
	if cmd.MonteCarlo.Enabled {
		payoff := domain.NewAutocallPayoff(cmd.Autocall)
		mc, sim, err := c.crossCheck(ctx, payoff, market, cmd.Autocall.Maturity, result.Price, cmd.MonteCarlo)
		if err != nil {
			return nil, c.fail(ctx, product, err)
		}
		result.MonteCarlo = mc
		event = event.WithMonteCarlo(mc.Estimate, sim)
		method = domain.MethodMonteCarlo
	}

	c.complete(ctx, event, method, start)
	return result, nil
}

// Convergence 在路径阶梯上运行蒙特卡洛并给出相对解析价的绝对误差
func (c *PricingCommandService) Convergence(ctx context.Context, cmd ConvergenceCommand) (*ConvergenceResult, error) {
	start := time.Now()
	product := domain.ProductType(cmd.Kind)

	market, _, err := c.query.ResolveMarket(ctx, cmd.Market)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}

	var (
		payoff    domain.Payoff
		reference float64
		maturity  float64
	)
	if product == domain.ProductAutocall {
		if err := market.Validate(); err != nil {
			return nil, c.fail(ctx, product, err)
		}
		d, err := domain.DecomposeAutocall(market, cmd.Autocall)
		if err != nil {
			return nil, c.fail(ctx, product, err)
		}
		payoff, reference, maturity = domain.NewAutocallPayoff(cmd.Autocall), d.Total(), cmd.Autocall.Maturity
	} else {
		kind, err := domain.ParseOptionType(cmd.Kind)
		if err != nil {
			return nil, c.fail(ctx, product, err)
		}
		payout, err := digitalPayout(kind, cmd.Payout)
		if err != nil {
			return nil, c.fail(ctx, product, err)
		}
		if reference, err = analyticOptionPrice(kind, market, cmd.Strike, cmd.Maturity, payout); err != nil {
			return nil, c.fail(ctx, product, err)
		}
		if payoff, err = optionPayoff(kind, cmd.Strike, payout); err != nil {
			return nil, c.fail(ctx, product, err)
		}
		maturity = cmd.Maturity
	}

	sim, err := c.simulation(cmd.MonteCarlo)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}
	ladder := cmd.Ladder
	if len(ladder) == 0 {
		ladder = c.cfg.ConvergenceLadder
	}
	points, err := c.engine.ConvergenceSweep(ctx, payoff, market, maturity, sim, ladder)
	if err != nil {
		return nil, c.fail(ctx, product, err)
	}
	c.metrics.AddMonteCarloPaths(sumPaths(points))

	c.metrics.RecordPricing(string(product), string(domain.MethodMonteCarlo), time.Since(start).Seconds())
	logger.Info(ctx, "convergence sweep completed",
		"product", product, "points", len(points), "max_paths", sim.Paths,
		"duration", time.Since(start))

	return &ConvergenceResult{
		Product:   product,
		Market:    market,
		Reference: reference,
		Points:    points,
		Errors:    domain.AbsErrorSeries(points, reference),
	}, nil
}

// crossCheck 运行蒙特卡洛并与解析价比较
func (c *PricingCommandService) crossCheck(ctx context.Context, payoff domain.Payoff, market domain.MarketParams,
	maturity, analytic float64, settings MonteCarloSettings) (*MonteCarloResult, domain.SimulationParams, error) {
	sim, err := c.simulation(settings)
	if err != nil {
		return nil, sim, err
	}
	est, err := c.engine.PriceWithStats(ctx, payoff, market, maturity, sim)
	if err != nil {
		return nil, sim, err
	}
	c.metrics.AddMonteCarloPaths(sim.Paths)

	mc := &MonteCarloResult{
		Estimate:   est,
		Difference: est.Price - analytic,
		Seed:       sim.Seed,
		Steps:      sim.Steps,
		Antithetic: sim.Antithetic,
	}
	if settings.Convergence {
		points, err := c.engine.ConvergenceSweep(ctx, payoff, market, maturity, sim, c.cfg.ConvergenceLadder)
		if err != nil {
			return nil, sim, err
		}
		c.metrics.AddMonteCarloPaths(sumPaths(points))
		mc.Convergence = domain.AbsErrorSeries(points, analytic)
	}
	return mc, sim, nil
}

// simulation 用配置默认值补全模拟参数
func (c *PricingCommandService) simulation(s MonteCarloSettings) (domain.SimulationParams, error) {
	sim := domain.SimulationParams{
		Paths:      c.cfg.DefaultPaths,
		Steps:      c.cfg.DefaultSteps,
		Antithetic: c.cfg.DefaultAntithetic,
	}
	if s.Paths != 0 {
		sim.Paths = s.Paths
	}
	if s.Steps != 0 {
		sim.Steps = s.Steps
	}
	if s.Antithetic != nil {
		sim.Antithetic = *s.Antithetic
	}
	switch {
	case s.RandomSeed:
	case s.Seed != nil:
		sim.Seed = s.Seed
	case c.cfg.DefaultSeed >= 0:
		sim.Seed = domain.Seed(c.cfg.DefaultSeed)
	}
	if c.cfg.MaxPaths > 0 && sim.Paths > c.cfg.MaxPaths {
		return sim, domain.NewInvalidParameterError("paths", fmt.Sprintf("must be <= %d", c.cfg.MaxPaths))
	}
	return sim, nil
}

func (c *PricingCommandService) complete(ctx context.Context, event domain.PricingCompletedEvent, method domain.PricingMethod, start time.Time) {
	elapsed := time.Since(start)
	event.DurationMs = elapsed.Milliseconds()
	c.metrics.RecordPricing(string(event.Product), string(method), elapsed.Seconds())

	logger.Info(ctx, "pricing completed",
		"product", event.Product,
		"method", method,
		"analytic_price", event.AnalyticPrice,
		"duration", elapsed)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.PublishPricingCompleted(pubCtx, event); err != nil {
		logger.Warn(ctx, "failed to publish pricing event", "event_id", event.EventID, "error", err)
	}
}

func (c *PricingCommandService) fail(ctx context.Context, product domain.ProductType, err error) error {
	if !product.Known() {
		product = "unknown"
	}
	c.metrics.RecordPricingError(string(product))
	logger.Warn(ctx, "pricing failed", "product", product, "error", err)
	return err
}

func sumPaths(points []domain.ConvergencePoint) int {
	total := 0
	for _, p := range points {
		total += p.Paths
	}
	return total
}
