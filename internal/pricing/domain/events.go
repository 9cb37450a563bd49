package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	PricingCompletedEventType = "PricingCompleted"
)

// PricingCompletedEvent 定价完成事件
type PricingCompletedEvent struct {
	EventID       string             `json:"event_id"`
	Product       ProductType        `json:"product"`
	Ticker        string             `json:"ticker,omitempty"`
	Market        MarketParams       `json:"market"`
	Strike        float64            `json:"strike,omitempty"`
	Maturity      float64            `json:"maturity"`
	AnalyticPrice float64            `json:"analytic_price"`
	MonteCarlo    *MonteCarloSummary `json:"monte_carlo,omitempty"`
	DurationMs    int64              `json:"duration_ms"`
	OccurredOn    time.Time          `json:"occurred_on"`
}

// MonteCarloSummary 事件中携带的蒙特卡洛结果摘要
type MonteCarloSummary struct {
	Price         float64 `json:"price"`
	StandardError float64 `json:"standard_error"`
	Paths         int     `json:"paths"`
	Seed          *int64  `json:"seed,omitempty"`
	Antithetic    bool    `json:"antithetic"`
}

// NewPricingCompletedEvent 创建定价完成事件，生成事件 ID 与发生时间
func NewPricingCompletedEvent(product ProductType, market MarketParams, maturity, analytic float64) PricingCompletedEvent {
	return PricingCompletedEvent{
		EventID:       uuid.NewString(),
		Product:       product,
		Market:        market,
		Maturity:      maturity,
		AnalyticPrice: analytic,
		OccurredOn:    time.Now().UTC(),
	}
}

// WithMonteCarlo 附加蒙特卡洛结果
func (e PricingCompletedEvent) WithMonteCarlo(est MonteCarloEstimate, sim SimulationParams) PricingCompletedEvent {
	e.MonteCarlo = &MonteCarloSummary{
		Price:         est.Price,
		StandardError: est.StandardError,
		Paths:         est.Paths,
		Seed:          sim.Seed,
		Antithetic:    sim.Antithetic,
	}
	return e
}

// Key 消息分区键，同一产品的事件落在同一分区
func (e PricingCompletedEvent) Key() string {
	return string(e.Product)
}
