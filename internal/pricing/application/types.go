package application

import (
	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
)

// MarketInput 市场参数输入
// Ticker 非空时用行情快照补全为零的 Spot 与 Volatility，显式给出的值优先
type MarketInput struct {
	Ticker       string
	LookbackDays int
	Spot         float64
	Rate         float64
	Volatility   float64
}

// MonteCarloSettings 蒙特卡洛设置，零值字段取配置默认值
type MonteCarloSettings struct {
	Enabled bool
	Paths   int
	Seed    *int64
	// 不固定种子，每次使用新的随机流
	RandomSeed bool
	Steps      int
	Antithetic *bool
	// 是否附带收敛序列 |mc - analytic|
	Convergence bool
}

// PriceZeroCouponCommand 零息债券定价命令
type PriceZeroCouponCommand struct {
	Rate     float64
	Maturity float64
	Nominal  float64
}

// ZeroCouponResult 零息债券定价结果
type ZeroCouponResult struct {
	Rate      float64 `json:"rate"`
	Maturity  float64 `json:"maturity"`
	Nominal   float64 `json:"nominal"`
	UnitPrice float64 `json:"unit_price"`
	Price     float64 `json:"price"`
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	// call, put, digital
	Kind     string
	Market   MarketInput
	Strike   float64
	Maturity float64
	// 数字期权的支付金额，nil 取 domain.DefaultDigitalPayout
	Payout     *float64
	MonteCarlo MonteCarloSettings
}

// MonteCarloResult 蒙特卡洛交叉验证结果
type MonteCarloResult struct {
	Estimate domain.MonteCarloEstimate `json:"estimate"`
	// mc - analytic
	Difference  float64              `json:"difference"`
	Seed        *int64               `json:"seed,omitempty"`
	Steps       int                  `json:"steps"`
	Antithetic  bool                 `json:"antithetic"`
	Convergence []domain.SeriesPoint `json:"convergence,omitempty"`
}

// OptionPricingResult 期权定价结果
type OptionPricingResult struct {
	Product       domain.ProductType    `json:"product"`
	Ticker        string                `json:"ticker,omitempty"`
	Market        domain.MarketParams   `json:"market"`
	Strike        float64               `json:"strike"`
	Maturity      float64               `json:"maturity"`
	Payout        float64               `json:"payout,omitempty"`
	AnalyticPrice float64               `json:"analytic_price"`
	MonteCarlo    *MonteCarloResult     `json:"monte_carlo,omitempty"`
	Profile       []domain.ProfilePoint `json:"profile"`
}

// PriceAutocallCommand autocall 定价命令
type PriceAutocallCommand struct {
	Market     MarketInput
	Autocall   domain.AutocallParams
	MonteCarlo MonteCarloSettings
}

// AutocallPricingResult autocall 定价结果
type AutocallPricingResult struct {
	Ticker          string                       `json:"ticker,omitempty"`
	Market          domain.MarketParams          `json:"market"`
	Params          domain.AutocallParams        `json:"params"`
	Price           float64                      `json:"price"`
	Decomposition   domain.AutocallDecomposition `json:"decomposition"`
	StrikesInverted bool                         `json:"strikes_inverted"`
	MonteCarlo      *MonteCarloResult            `json:"monte_carlo,omitempty"`
	Profile         []domain.ProfilePoint        `json:"profile"`
}

// ConvergenceCommand 收敛分析命令，MonteCarlo.Paths 为最大路径数
type ConvergenceCommand struct {
	// call, put, digital, autocall
	Kind       string
	Market     MarketInput
	Strike     float64
	Maturity   float64
	Payout     *float64
	Autocall   domain.AutocallParams
	MonteCarlo MonteCarloSettings
	Ladder     []int
}

// ConvergenceResult 收敛分析结果
type ConvergenceResult struct {
	Product   domain.ProductType        `json:"product"`
	Market    domain.MarketParams       `json:"market"`
	Reference float64                   `json:"reference"`
	Points    []domain.ConvergencePoint `json:"points"`
	// 每个点的 |mc - reference|
	Errors []domain.SeriesPoint `json:"errors"`
}
