package kafka

import (
	"context"
	"strings"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type eventSender interface {
	PublishEvent(ctx context.Context, topic string, key string, event any, headers ...sarama.RecordHeader) error
}

// OrderPublisher публикует события заказов в один топик; ключ сообщения — id заказа,
// поэтому события одного заказа попадают в одну партицию по порядку.
type OrderPublisher struct {
	sender eventSender
	topic  string
}

// NewOrderPublisher создаёт publisher поверх producer.
func NewOrderPublisher(sender eventSender, topic string) *OrderPublisher {
	if strings.TrimSpace(topic) == "" {
		topic = TopicOrderEvents
	}
	return &OrderPublisher{sender: sender, topic: topic}
}

// Publish реализует domain.OrderEventPublisher.
func (p *OrderPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	header := sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(event.Type)}
	return p.sender.PublishEvent(ctx, p.topic, event.OrderID, NewOrderEvent(event), header)
}

var _ domain.OrderEventPublisher = (*OrderPublisher)(nil)
