package domain

import (
	"strings"
	"time"
)

// Order — запись о заказе в таблице orders.
type Order struct {
	// ID выдаётся хранилищем при создании и больше не меняется.
	ID string
	// CreatedAt передаёт клиент; поле можно перезаписать через Update.
	CreatedAt time.Time
	// CustomerID — непрозрачная ссылка на клиента, ссылочная целостность не проверяется.
	CustomerID string
}

// CreateOrder описывает входные данные для создания заказа (без ID).
type CreateOrder struct {
	CreatedAt  time.Time
	CustomerID string
}

// Validate проверяет, что обязательные поля заполнены.
func (in CreateOrder) Validate() error {
	return validateFields(in.CreatedAt, in.CustomerID)
}

// UpdateOrder полностью заменяет изменяемые поля заказа.
type UpdateOrder struct {
	CreatedAt  time.Time
	CustomerID string
}

// Validate проверяет, что обязательные поля заполнены.
func (in UpdateOrder) Validate() error {
	return validateFields(in.CreatedAt, in.CustomerID)
}

func validateFields(createdAt time.Time, customerID string) error {
	if createdAt.IsZero() {
		return ErrCreatedAtRequired
	}
	if strings.TrimSpace(customerID) == "" {
		return ErrCustomerRequired
	}
	return nil
}

// Page — страница упорядоченной выборки и общее число записей.
//
// TotalCount читается отдельным запросом и может разойтись с Items
// при конкурентной записи, если список не читается в одном снапшоте.
type Page struct {
	Items      []Order
	TotalCount int64
	Page       int
	PerPage    int
	HasMore    bool
}
