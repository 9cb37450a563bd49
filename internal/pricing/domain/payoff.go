package domain

import "math"

// Payoff 到期收益函数，对每个模拟出的终值价格求值一次
type Payoff interface {
	Evaluate(terminal float64) float64
}

// PayoffFunc 自定义标量收益函数
type PayoffFunc func(terminal float64) float64

// Evaluate 实现 Payoff
func (f PayoffFunc) Evaluate(terminal float64) float64 {
	return f(terminal)
}

// CallPayoff max(S_T - K, 0)
type CallPayoff struct {
	Strike float64
}

// Evaluate 实现 Payoff
func (p CallPayoff) Evaluate(terminal float64) float64 {
	return math.Max(terminal-p.Strike, 0)
}

// PutPayoff max(K - S_T, 0)
type PutPayoff struct {
	Strike float64
}

// Evaluate 实现 Payoff
func (p PutPayoff) Evaluate(terminal float64) float64 {
	return math.Max(p.Strike-terminal, 0)
}

// DefaultDigitalPayout 未指定支付金额时数字期权的支付
const DefaultDigitalPayout = 1.0

// DigitalPayoff S_T > K 时支付 Payout
type DigitalPayoff struct {
	Strike float64
	Payout float64
}

// Evaluate 实现 Payoff
func (p DigitalPayoff) Evaluate(terminal float64) float64 {
	if terminal > p.Strike {
		return p.Payout
	}
	return 0
}

// AutocallPayoff 与静态复制一致的到期收益：
// nominal + nominal*coupon*1{S_T > K_call} - max(K_put - S_T, 0)
type AutocallPayoff struct {
	StrikeCall float64
	StrikePut  float64
	CouponRate float64
	Nominal    float64
}

// NewAutocallPayoff 由票据参数构造收益函数
func NewAutocallPayoff(p AutocallParams) AutocallPayoff {
	return AutocallPayoff{
		StrikeCall: p.StrikeCall,
		StrikePut:  p.StrikePut,
		CouponRate: p.CouponRate,
		Nominal:    p.Nominal,
	}
}

// Evaluate 实现 Payoff
func (p AutocallPayoff) Evaluate(terminal float64) float64 {
	v := p.Nominal
	if terminal > p.StrikeCall {
		v += p.Nominal * p.CouponRate
	}
	return v - math.Max(p.StrikePut-terminal, 0)
}

// ProfilePoint 到期收益曲线上的一个点
type ProfilePoint struct {
	Terminal float64 `json:"terminal"`
	Payoff   float64 `json:"payoff"`
}

const profilePoints = 31

// PayoffProfile 在 [0.5*spot, 2.5*spot] 上等距取 31 个点计算到期收益
func PayoffProfile(p Payoff, spot float64) ([]ProfilePoint, error) {
	if p == nil {
		return nil, invalidField("payoff", "must not be nil")
	}
	if err := requirePositive("spot", spot); err != nil {
		return nil, err
	}
	step := spot / 15.0
	points := make([]ProfilePoint, profilePoints)
	for i := range points {
		s := 0.5*spot + float64(i)*step
		points[i] = ProfilePoint{Terminal: s, Payoff: p.Evaluate(s)}
	}
	return points, nil
}
