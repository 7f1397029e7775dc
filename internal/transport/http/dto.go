package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRequest — тело POST и PUT. Указатели отличают отсутствующее поле от нулевого значения.
type orderRequest struct {
	CreatedAt  *time.Time `json:"created_at"`
	CustomerID *string    `json:"customer_id"`
}

func (r orderRequest) missingField() string {
	switch {
	case r.CreatedAt == nil:
		return "created_at"
	case r.CustomerID == nil:
		return "customer_id"
	default:
		return ""
	}
}

// createdAt приводит время к точности TIMESTAMPTZ, чтобы ответ на запись
// совпадал с тем, что потом вернёт чтение.
func (r orderRequest) createdAt() time.Time {
	return r.CreatedAt.UTC().Truncate(time.Microsecond)
}

func (r orderRequest) toCreate() domain.CreateOrder {
	return domain.CreateOrder{CreatedAt: r.createdAt(), CustomerID: *r.CustomerID}
}

func (r orderRequest) toUpdate() domain.UpdateOrder {
	return domain.UpdateOrder{CreatedAt: r.createdAt(), CustomerID: *r.CustomerID}
}

type orderResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CustomerID string    `json:"customer_id"`
}

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:         order.ID,
		CreatedAt:  order.CreatedAt.UTC(),
		CustomerID: order.CustomerID,
	}
}

type listResponse struct {
	Value      []orderResponse `json:"value"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	HasMore    bool            `json:"has_more"`
}

func toListResponse(page domain.Page) listResponse {
	items := make([]orderResponse, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, toOrderResponse(order))
	}
	return listResponse{
		Value:      items,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PerPage:    page.PerPage,
		HasMore:    page.HasMore,
	}
}

type deleteResponse struct {
	ID string `json:"id"`
}
