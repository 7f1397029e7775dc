package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// TopicOrderEvents — топик по умолчанию для событий заказов.
const TopicOrderEvents = "orders.events"

// HeaderEventType дублирует тип события в заголовке, чтобы потребители
// могли фильтровать сообщения без разбора тела.
const HeaderEventType = "x-event-type"

// OrderEvent — тело сообщения об изменении заказа.
type OrderEvent struct {
	EventType  domain.OrderEventType `json:"event_type"`
	OrderID    string                `json:"order_id"`
	CustomerID string                `json:"customer_id,omitempty"`
	CreatedAt  *time.Time            `json:"created_at,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// NewOrderEvent строит сообщение из доменного события.
func NewOrderEvent(event domain.OrderEvent) *OrderEvent {
	msg := &OrderEvent{
		EventType:  event.Type,
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		Timestamp:  event.OccurredAt,
	}
	if !event.CreatedAt.IsZero() {
		createdAt := event.CreatedAt.UTC()
		msg.CreatedAt = &createdAt
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}
