package application

import (
	"context"
	"math"
	"strings"

	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
	"github.com/wyfcoding/structuredpricing/pkg/logger"
)

// DefaultLookbackDays 按代码补全行情时默认的回看天数
const DefaultLookbackDays = 252

// PricingQueryService 处理不产生事件的查询操作：行情补全与到期收益曲线
type PricingQueryService struct {
	quotes domain.MarketQuoteProvider
}

// NewPricingQueryService 创建查询服务，quotes 为 nil 时不支持按代码补全行情
func NewPricingQueryService(quotes domain.MarketQuoteProvider) *PricingQueryService {
	return &PricingQueryService{quotes: quotes}
}

// ResolveMarket 组装市场参数，返回规范化后的代码
func (q *PricingQueryService) ResolveMarket(ctx context.Context, in MarketInput) (domain.MarketParams, string, error) {
	market := domain.MarketParams{Spot: in.Spot, Rate: in.Rate, Volatility: in.Volatility}
	ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))
	if ticker == "" || (market.Spot != 0 && market.Volatility != 0) {
		return market, ticker, nil
	}
	if q.quotes == nil {
		return market, ticker, domain.NewInvalidParameterError("ticker", "market data is not configured")
	}

	lookback := in.LookbackDays
	if lookback == 0 {
		lookback = DefaultLookbackDays
	}
	quote, err := q.quotes.Quote(ctx, ticker, lookback)
	if err != nil {
		return market, ticker, err
	}
	if market.Spot == 0 {
		market.Spot = quote.Spot
	}
	if market.Volatility == 0 {
		market.Volatility = quote.Volatility
	}
	logger.Debug(ctx, "market params filled from snapshot",
		"ticker", ticker, "spot", market.Spot, "volatility", market.Volatility)
	return market, ticker, nil
}

// AutocallProfile autocall 的到期收益曲线
func (q *PricingQueryService) AutocallProfile(p domain.AutocallParams, spot float64) ([]domain.ProfilePoint, error) {
	return domain.PayoffProfile(domain.NewAutocallPayoff(p), spot)
}

// digitalPayout 非数字期权返回 0；数字期权未指定时取默认支付，显式给出的值必须为正
func digitalPayout(kind domain.ProductType, payout *float64) (float64, error) {
	if kind != domain.ProductDigital {
		return 0, nil
	}
	if payout == nil {
		return domain.DefaultDigitalPayout, nil
	}
	if !(*payout > 0) || math.IsInf(*payout, 0) {
		return 0, domain.NewInvalidParameterError("payout", "must be strictly positive and finite")
	}
	return *payout, nil
}

func optionPayoff(kind domain.ProductType, strike, payout float64) (domain.Payoff, error) {
	switch kind {
	case domain.ProductCall:
		return domain.CallPayoff{Strike: strike}, nil
	case domain.ProductPut:
		return domain.PutPayoff{Strike: strike}, nil
	case domain.ProductDigital:
		return domain.DigitalPayoff{Strike: strike, Payout: payout}, nil
	default:
		return nil, domain.NewInvalidParameterError("kind", "unsupported option type "+string(kind))
	}
}

func analyticOptionPrice(kind domain.ProductType, m domain.MarketParams, strike, maturity, payout float64) (float64, error) {
	switch kind {
	case domain.ProductCall:
		return domain.Call(m.Spot, strike, m.Rate, m.Volatility, maturity)
	case domain.ProductPut:
		return domain.Put(m.Spot, strike, m.Rate, m.Volatility, maturity)
	case domain.ProductDigital:
		return domain.DigitalCall(m.Spot, strike, m.Rate, m.Volatility, maturity, payout)
	default:
		return 0, domain.NewInvalidParameterError("kind", "unsupported option type "+string(kind))
	}
}
