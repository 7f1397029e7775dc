// Package pagination переводит номер страницы и её размер в offset/limit.
package pagination

import (
	"fmt"
	"math"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Window — окно выборки для одной страницы.
type Window struct {
	Page    int
	PerPage int
	Offset  int64
	Limit   int64
}

// New проверяет границы и считает offset = (page - 1) * perPage.
func New(page, perPage int) (Window, error) {
	if page < 1 {
		return Window{}, fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrInvalidPagination, page)
	}
	if perPage < 1 {
		return Window{}, fmt.Errorf("%w: per_page must be >= 1, got %d", domain.ErrInvalidPagination, perPage)
	}

	skipped := int64(page) - 1
	if skipped > math.MaxInt64/int64(perPage) {
		return Window{}, fmt.Errorf("%w: offset overflows for page %d", domain.ErrInvalidPagination, page)
	}

	return Window{
		Page:    page,
		PerPage: perPage,
		Offset:  skipped * int64(perPage),
		Limit:   int64(perPage),
	}, nil
}

// HasMore сообщает, остались ли записи после текущей страницы.
func (w Window) HasMore(returned int, total int64) bool {
	return w.Offset+int64(returned) < total
}

// Compute — то же самое одной функцией: offset и признак следующей страницы.
func Compute(page, perPage, returned int, total int64) (int64, bool, error) {
	w, err := New(page, perPage)
	if err != nil {
		return 0, false, err
	}
	return w.Offset, w.HasMore(returned, total), nil
}
