package domain

import (
	"context"
	"time"
)

// OrderEventType — тип события изменения заказа.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
	OrderEventDeleted OrderEventType = "order.deleted"
)

// OrderEvent описывает успешное изменение заказа.
type OrderEvent struct {
	Type       OrderEventType
	OrderID    string
	CustomerID string
	CreatedAt  time.Time
	OccurredAt time.Time
}

// OrderEventPublisher передаёт события изменения заказов наружу.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NoopPublisher отбрасывает события; используется, когда брокер не настроен.
type NoopPublisher struct{}

// Publish ничего не делает.
func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }
