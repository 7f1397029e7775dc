package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/pagination"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create выдаёт новый UUID и сохраняет заказ.
func (r *orderRepositoryInMemory) Create(ctx context.Context, in domain.CreateOrder) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		CreatedAt:  in.CreatedAt,
		CustomerID: in.CustomerID,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[order.ID] = order
	return order, nil
}

// GetByID возвращает заказ или ErrNotFound, если его нет.
func (r *orderRepositoryInMemory) GetByID(ctx context.Context, id string) (domain.Order, error) {
	key, ok := canonicalID(id)
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[key]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

// List возвращает страницу заказов, отсортированных по id.
func (r *orderRepositoryInMemory) List(ctx context.Context, page, perPage int) (domain.Page, error) {
	window, err := pagination.New(page, perPage)
	if err != nil {
		return domain.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	r.mu.RLock()
	all := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		all = append(all, order)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].ID < all[j].ID
	})

	total := int64(len(all))
	items := make([]domain.Order, 0)
	if window.Offset < total {
		end := window.Offset + window.Limit
		if end > total || end < window.Offset {
			end = total
		}
		items = append(items, all[window.Offset:end]...)
	}

	return domain.Page{
		Items:      items,
		TotalCount: total,
		Page:       window.Page,
		PerPage:    window.PerPage,
		HasMore:    window.HasMore(len(items), total),
	}, nil
}

// Update перезаписывает изменяемые поля существующего заказа.
func (r *orderRepositoryInMemory) Update(ctx context.Context, id string, in domain.UpdateOrder) error {
	if err := in.Validate(); err != nil {
		return err
	}
	key, ok := canonicalID(id)
	if !ok {
		return domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[key]
	if !ok {
		return domain.ErrNotFound
	}
	current.CreatedAt = in.CreatedAt
	current.CustomerID = in.CustomerID
	r.items[key] = current
	return nil
}

// Delete удаляет заказ.
func (r *orderRepositoryInMemory) Delete(ctx context.Context, id string) error {
	key, ok := canonicalID(id)
	if !ok {
		return domain.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, key)
	return nil
}

func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
