package domain

import (
	"math"
)

// ZeroCoupon 计算零息债券单位面值的价格，即无风险贴现因子 exp(-rT)
func ZeroCoupon(rate, maturity float64) (float64, error) {
	if err := requireFinite("rate", rate); err != nil {
		return 0, err
	}
	if err := requireNonNegative("maturity", maturity); err != nil {
		return 0, err
	}
	return math.Exp(-rate * maturity), nil
}

// Call 计算欧式看涨期权的 Black-Scholes 价格
func Call(spot, strike, rate, volatility, maturity float64) (float64, error) {
	d1, d2, err := computeD1D2(spot, strike, rate, volatility, maturity)
	if err != nil {
		return 0, err
	}
	return spot*normCdf(d1) - strike*math.Exp(-rate*maturity)*normCdf(d2), nil
}

// Put 计算欧式看跌期权的 Black-Scholes 价格
func Put(spot, strike, rate, volatility, maturity float64) (float64, error) {
	d1, d2, err := computeD1D2(spot, strike, rate, volatility, maturity)
	if err != nil {
		return 0, err
	}
	return strike*math.Exp(-rate*maturity)*normCdf(-d2) - spot*normCdf(-d1), nil
}

// DigitalCall 计算现金或无（cash-or-nothing）数字看涨期权价格，到期 S_T > K 时支付 payout
func DigitalCall(spot, strike, rate, volatility, maturity, payout float64) (float64, error) {
	_, d2, err := computeD1D2(spot, strike, rate, volatility, maturity)
	if err != nil {
		return 0, err
	}
	if err := requireFinite("payout", payout); err != nil {
		return 0, err
	}
	return payout * math.Exp(-rate*maturity) * normCdf(d2), nil
}

// computeD1D2 校验输入并计算 d1, d2
// 校验保证 volatility*sqrt(maturity) > 0
func computeD1D2(spot, strike, rate, volatility, maturity float64) (float64, float64, error) {
	if err := validateBlackScholes(spot, strike, rate, volatility, maturity); err != nil {
		return 0, 0, err
	}
	volSqrtT := volatility * math.Sqrt(maturity)
	d1 := (math.Log(spot/strike) + (rate+0.5*volatility*volatility)*maturity) / volSqrtT
	d2 := d1 - volSqrtT
	return d1, d2, nil
}

func validateBlackScholes(spot, strike, rate, volatility, maturity float64) error {
	if err := (MarketParams{Spot: spot, Rate: rate, Volatility: volatility}).Validate(); err != nil {
		return err
	}
	return OptionParams{Strike: strike, Maturity: maturity}.Validate()
}

// normCdf 标准正态分布累积分布函数
func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
