package messaging

import (
	"context"

	"github.com/wyfcoding/structuredpricing/internal/pricing/domain"
)

// Producer 消息生产者
type Producer interface {
	SendMessage(ctx context.Context, topic, key string, value any) error
}

// KafkaEventPublisher 将定价事件写入 Kafka 主题
type KafkaEventPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布者
func NewKafkaEventPublisher(producer Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// PublishPricingCompleted 实现 domain.EventPublisher，按产品类型分区
func (p *KafkaEventPublisher) PublishPricingCompleted(ctx context.Context, event domain.PricingCompletedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.Key(), envelope{
		Type:  domain.PricingCompletedEventType,
		Event: event,
	})
}

type envelope struct {
	Type  string                       `json:"type"`
	Event domain.PricingCompletedEvent `json:"event"`
}
