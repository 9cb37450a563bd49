package domain

// MarketParams 市场参数，利率可以为负
type MarketParams struct {
	Spot       float64 `json:"spot"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
}

// Validate 校验现价与波动率为正、利率有限
func (m MarketParams) Validate() error {
	if err := requirePositive("spot", m.Spot); err != nil {
		return err
	}
	if err := requireFinite("rate", m.Rate); err != nil {
		return err
	}
	return requirePositive("volatility", m.Volatility)
}

// OptionParams 期权合约参数
type OptionParams struct {
	Strike   float64 `json:"strike"`
	Maturity float64 `json:"maturity"`
}

// Validate 校验行权价与期限为正
func (o OptionParams) Validate() error {
	if err := requirePositive("strike", o.Strike); err != nil {
		return err
	}
	return requirePositive("maturity", o.Maturity)
}

// AutocallParams 简化版 autocall 票据参数
// StrikePut < StrikeCall 是产品形态的预期，但不做强制校验
type AutocallParams struct {
	StrikeCall float64 `json:"strike_call"`
	StrikePut  float64 `json:"strike_put"`
	Maturity   float64 `json:"maturity"`
	CouponRate float64 `json:"coupon_rate"`
	Nominal    float64 `json:"nominal"`
}

// Validate 校验票据自身的参数，行权价与期限交由各分量定价时校验
func (a AutocallParams) Validate() error {
	if err := requirePositive("nominal", a.Nominal); err != nil {
		return err
	}
	return requireNonNegative("coupon_rate", a.CouponRate)
}

// StrikesInverted 报告 put 行权价是否不低于 call 行权价
func (a AutocallParams) StrikesInverted() bool {
	return a.StrikePut >= a.StrikeCall
}
