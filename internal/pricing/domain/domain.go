// 包 定价服务的领域模型：解析定价、静态复制、蒙特卡洛引擎与收敛分析
package domain

import (
	"context"
	"strconv"
)

// ProductType 产品类型
type ProductType string

const (
	ProductZeroCoupon ProductType = "zero_coupon" // 零息债券
	ProductCall       ProductType = "call"        // 欧式看涨
	ProductPut        ProductType = "put"         // 欧式看跌
	ProductDigital    ProductType = "digital"     // 数字看涨
	ProductAutocall   ProductType = "autocall"    // 简化 autocall
)

// Known 是否为已支持的产品类型
func (p ProductType) Known() bool {
	switch p {
	case ProductZeroCoupon, ProductCall, ProductPut, ProductDigital, ProductAutocall:
		return true
	}
	return false
}

// ParseOptionType 解析期权类产品类型，只接受 call/put/digital
func ParseOptionType(s string) (ProductType, error) {
	switch p := ProductType(s); p {
	case ProductCall, ProductPut, ProductDigital:
		return p, nil
	default:
		return "", invalidField("kind", "must be one of call, put, digital, got "+strconv.Quote(s))
	}
}

// PricingMethod 定价方法
type PricingMethod string

const (
	MethodAnalytic   PricingMethod = "analytic"
	MethodMonteCarlo PricingMethod = "monte_carlo"
)

// MarketQuote 标的行情：现价与年化波动率
type MarketQuote struct {
	Ticker     string
	Spot       float64
	Volatility float64
}

// MarketQuoteProvider 行情提供者接口，定价时可按代码补全现价与波动率
type MarketQuoteProvider interface {
	Quote(ctx context.Context, ticker string, lookbackDays int) (MarketQuote, error)
}
