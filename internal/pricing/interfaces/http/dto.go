package http

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/structuredpricing/internal/pricing/application"
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
)

const displayPlaces = 6

// MarketRequest 市场参数，ticker 非空时可省略 spot/volatility
type MarketRequest struct {
	Ticker       string  `json:"ticker"`
	LookbackDays int     `json:"lookback_days"`
	Spot         float64 `json:"spot"`
	Rate         float64 `json:"rate"`
	Volatility   float64 `json:"volatility"`
}

func (r MarketRequest) toInput() application.MarketInput {
	return application.MarketInput{
		Ticker:       r.Ticker,
		LookbackDays: r.LookbackDays,
		Spot:         r.Spot,
		Rate:         r.Rate,
		Volatility:   r.Volatility,
	}
}

// MonteCarloRequest 蒙特卡洛设置
type MonteCarloRequest struct {
	Enabled     bool   `json:"enabled"`
	Paths       int    `json:"paths"`
	Seed        *int64 `json:"seed"`
	RandomSeed  bool   `json:"random_seed"`
	Steps       int    `json:"steps"`
	Antithetic  *bool  `json:"antithetic"`
	Convergence bool   `json:"convergence"`
}

func (r MonteCarloRequest) toSettings() application.MonteCarloSettings {
	return application.MonteCarloSettings{
		Enabled:     r.Enabled,
		Paths:       r.Paths,
		Seed:        r.Seed,
		RandomSeed:  r.RandomSeed,
		Steps:       r.Steps,
		Antithetic:  r.Antithetic,
		Convergence: r.Convergence,
	}
}

// ZeroCouponRequest 零息债券定价请求
type ZeroCouponRequest struct {
	Rate     float64 `json:"rate"`
	Maturity float64 `json:"maturity"`
	Nominal  float64 `json:"nominal"`
}

// OptionRequest 期权定价请求
type OptionRequest struct {
	Kind       string            `json:"kind" binding:"required"`
	Market     MarketRequest     `json:"market"`
	Strike     float64           `json:"strike"`
	Maturity   float64           `json:"maturity"`
	Payout     *float64          `json:"payout"`
	MonteCarlo MonteCarloRequest `json:"monte_carlo"`
}

// AutocallRequest autocall 定价请求
type AutocallRequest struct {
	Market     MarketRequest     `json:"market"`
	StrikeCall float64           `json:"strike_call"`
	StrikePut  float64           `json:"strike_put"`
	Maturity   float64           `json:"maturity"`
	CouponRate float64           `json:"coupon_rate"`
	Nominal    float64           `json:"nominal"`
	MonteCarlo MonteCarloRequest `json:"monte_carlo"`
}

func (r AutocallRequest) params() domain.AutocallParams {
	return domain.AutocallParams{
		StrikeCall: r.StrikeCall,
		StrikePut:  r.StrikePut,
		Maturity:   r.Maturity,
		CouponRate: r.CouponRate,
		Nominal:    r.Nominal,
	}
}

// ConvergenceRequest 收敛分析请求，kind=autocall 时使用 autocall 字段
type ConvergenceRequest struct {
	Kind       string            `json:"kind" binding:"required"`
	Market     MarketRequest     `json:"market"`
	Strike     float64           `json:"strike"`
	Maturity   float64           `json:"maturity"`
	Payout     *float64          `json:"payout"`
	Autocall   AutocallRequest   `json:"autocall"`
	MonteCarlo MonteCarloRequest `json:"monte_carlo"`
	Ladder     []int             `json:"ladder"`
}

// round 展示用舍入，非有限值原样返回
func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(displayPlaces).InexactFloat64()
}

func roundMarket(m domain.MarketParams) domain.MarketParams {
	return domain.MarketParams{Spot: round(m.Spot), Rate: m.Rate, Volatility: round(m.Volatility)}
}

func roundEstimate(e domain.MonteCarloEstimate) domain.MonteCarloEstimate {
	e.Price = round(e.Price)
	e.StandardError = round(e.StandardError)
	e.CILow = round(e.CILow)
	e.CIHigh = round(e.CIHigh)
	return e
}

func roundSeries(points []domain.SeriesPoint) []domain.SeriesPoint {
	if points == nil {
		return nil
	}
	out := make([]domain.SeriesPoint, len(points))
	for i, p := range points {
		out[i] = domain.SeriesPoint{Paths: p.Paths, Value: round(p.Value)}
	}
	return out
}

func roundProfile(points []domain.ProfilePoint) []domain.ProfilePoint {
	out := make([]domain.ProfilePoint, len(points))
	for i, p := range points {
		out[i] = domain.ProfilePoint{Terminal: round(p.Terminal), Payoff: round(p.Payoff)}
	}
	return out
}

func roundMonteCarlo(mc *application.MonteCarloResult) *application.MonteCarloResult {
	if mc == nil {
		return nil
	}
	out := *mc
	out.Estimate = roundEstimate(mc.Estimate)
	out.Difference = round(mc.Difference)
	out.Convergence = roundSeries(mc.Convergence)
	return &out
}

func zeroCouponView(r *application.ZeroCouponResult) *application.ZeroCouponResult {
	out := *r
	out.UnitPrice = round(r.UnitPrice)
	out.Price = round(r.Price)
	return &out
}

func optionView(r *application.OptionPricingResult) *application.OptionPricingResult {
	out := *r
	out.Market = roundMarket(r.Market)
	out.AnalyticPrice = round(r.AnalyticPrice)
	out.MonteCarlo = roundMonteCarlo(r.MonteCarlo)
	out.Profile = roundProfile(r.Profile)
	return &out
}

func autocallView(r *application.AutocallPricingResult) *application.AutocallPricingResult {
	out := *r
	out.Market = roundMarket(r.Market)
	out.Price = round(r.Price)
	out.Decomposition = domain.AutocallDecomposition{
		ZeroCouponLeg:  round(r.Decomposition.ZeroCouponLeg),
		DigitalCallLeg: round(r.Decomposition.DigitalCallLeg),
		ShortPutLeg:    round(r.Decomposition.ShortPutLeg),
	}
	out.MonteCarlo = roundMonteCarlo(r.MonteCarlo)
	out.Profile = roundProfile(r.Profile)
	return &out
}

func convergenceView(r *application.ConvergenceResult) *application.ConvergenceResult {
	out := *r
	out.Market = roundMarket(r.Market)
	out.Reference = round(r.Reference)
	out.Points = make([]domain.ConvergencePoint, len(r.Points))
	for i, p := range r.Points {
		out.Points[i] = domain.ConvergencePoint{Paths: p.Paths, Estimate: roundEstimate(p.Estimate)}
	}
	out.Errors = roundSeries(r.Errors)
	return &out
}
