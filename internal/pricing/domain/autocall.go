package domain

// AutocallDecomposition 简化 autocall 的静态复制：零息债券 + 数字看涨 - 卖出看跌
type AutocallDecomposition struct {
	ZeroCouponLeg  float64 `json:"zero_coupon_leg"`
	DigitalCallLeg float64 `json:"digital_call_leg"`
	ShortPutLeg    float64 `json:"short_put_leg"`
}

// Total 组合价格，求和顺序固定为 zc + digital - put
func (d AutocallDecomposition) Total() float64 {
	return d.ZeroCouponLeg + d.DigitalCallLeg - d.ShortPutLeg
}

// DecomposeAutocall 分别计算三条腿的价格
func DecomposeAutocall(market MarketParams, p AutocallParams) (AutocallDecomposition, error) {
	if err := p.Validate(); err != nil {
		return AutocallDecomposition{}, err
	}

	zc, err := ZeroCoupon(market.Rate, p.Maturity)
	if err != nil {
		return AutocallDecomposition{}, err
	}
	digital, err := DigitalCall(market.Spot, p.StrikeCall, market.Rate, market.Volatility, p.Maturity, p.Nominal*p.CouponRate)
	if err != nil {
		return AutocallDecomposition{}, err
	}
	put, err := Put(market.Spot, p.StrikePut, market.Rate, market.Volatility, p.Maturity)
	if err != nil {
		return AutocallDecomposition{}, err
	}

	return AutocallDecomposition{
		ZeroCouponLeg:  p.Nominal * zc,
		DigitalCallLeg: digital,
		ShortPutLeg:    put,
	}, nil
}

// PriceAutocallSimplified 简化 autocall 的理论价格
func PriceAutocallSimplified(spot, strikeCall, strikePut, rate, volatility, maturity, couponRate, nominal float64) (float64, error) {
	d, err := DecomposeAutocall(
		MarketParams{Spot: spot, Rate: rate, Volatility: volatility},
		AutocallParams{
			StrikeCall: strikeCall,
			StrikePut:  strikePut,
			Maturity:   maturity,
			CouponRate: couponRate,
			Nominal:    nominal,
		},
	)
	if err != nil {
		return 0, err
	}
	return d.Total(), nil
}
