package pagination

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func TestNew_Offsets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		page, perPage int
		offset        int64
	}{
		{page: 1, perPage: 10, offset: 0},
		{page: 2, perPage: 10, offset: 10},
		{page: 3, perPage: 10, offset: 20},
		{page: 4, perPage: 10, offset: 30},
		{page: 7, perPage: 1, offset: 6},
	}

	for _, tc := range cases {
		w, err := New(tc.page, tc.perPage)
		require.NoError(t, err)
		assert.Equal(t, tc.offset, w.Offset, "page=%d per_page=%d", tc.page, tc.perPage)
		assert.Equal(t, int64(tc.perPage), w.Limit)
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		page, perPage int
	}{
		{name: "zero page", page: 0, perPage: 10},
		{name: "negative page", page: -1, perPage: 10},
		{name: "zero per_page", page: 1, perPage: 0},
		{name: "negative per_page", page: 1, perPage: -5},
		{name: "overflow", page: math.MaxInt, perPage: math.MaxInt},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.page, tc.perPage)
			if !errors.Is(err, domain.ErrInvalidPagination) {
				t.Fatalf("expected ErrInvalidPagination, got %v", err)
			}
		})
	}
}

func TestWindow_HasMore(t *testing.T) {
	t.Parallel()

	// 25 строк по 10 на странице.
	first, _ := New(1, 10)
	assert.True(t, first.HasMore(10, 25))

	third, _ := New(3, 10)
	assert.False(t, third.HasMore(5, 25))

	beyond, _ := New(4, 10)
	assert.False(t, beyond.HasMore(0, 25))

	exact, _ := New(2, 10)
	assert.False(t, exact.HasMore(10, 20))
}

func TestCompute(t *testing.T) {
	t.Parallel()

	offset, hasMore, err := Compute(2, 10, 10, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(10), offset)
	assert.True(t, hasMore)

	_, _, err = Compute(0, 10, 0, 25)
	assert.ErrorIs(t, err, domain.ErrInvalidPagination)
}
