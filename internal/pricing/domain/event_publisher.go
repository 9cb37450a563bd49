package domain

import "context"

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// PublishPricingCompleted 发布定价完成事件
	PublishPricingCompleted(ctx context.Context, event PricingCompletedEvent) error
}

// NopEventPublisher 未配置消息队列时使用，丢弃所有事件
type NopEventPublisher struct{}

// PublishPricingCompleted 实现 EventPublisher
func (NopEventPublisher) PublishPricingCompleted(context.Context, PricingCompletedEvent) error {
	return nil
}
