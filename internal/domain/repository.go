package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
//
// Реализации не хранят состояние между вызовами и не повторяют
// неудачные операции: каждая ошибка отдаётся вызывающему как один
// из видов таксономии (ErrNotFound, ErrStoreRead и т.д.).
type OrderRepository interface {
	// Create выдаёт новый ID, вставляет строку и возвращает сохранённый заказ.
	Create(ctx context.Context, in CreateOrder) (Order, error)
	// GetByID возвращает заказ или ErrNotFound.
	GetByID(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов, упорядоченных по ID, и общее число строк.
	List(ctx context.Context, page, perPage int) (Page, error)
	// Update перезаписывает created_at и customer_id; ErrNotFound, если строки нет.
	Update(ctx context.Context, id string, in UpdateOrder) error
	// Delete физически удаляет строку; ErrNotFound, если строки нет.
	Delete(ctx context.Context, id string) error
}
