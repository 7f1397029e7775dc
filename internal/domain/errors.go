package domain

import (
	"context"
	"errors"
)

var (
	// ErrCustomerRequired — не передан customer_id.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrCreatedAtRequired — не передан created_at.
	ErrCreatedAtRequired = errors.New("created_at is required")

	// ErrNotFound возвращается, если ни одна строка не совпала с идентификатором.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidPagination — page или per_page меньше единицы.
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrCorruptRow — строка из хранилища не отображается в Order.
	ErrCorruptRow = errors.New("corrupt order row")
	// ErrStoreRead — сбой соединения или запроса при чтении.
	ErrStoreRead = errors.New("store read failed")
	// ErrStoreWrite — сбой соединения, запроса или ограничения при записи.
	ErrStoreWrite = errors.New("store write failed")
	// ErrPoolExhausted — за отведённое время не освободилось ни одного соединения.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrPoolUnavailable — хранилище недоступно, соединение не получить.
	ErrPoolUnavailable = errors.New("connection pool unavailable")
)

// IsValidation сообщает, что ошибка вызвана некорректными входными данными.
func IsValidation(err error) bool {
	return errors.Is(err, ErrCustomerRequired) || errors.Is(err, ErrCreatedAtRequired)
}

// ErrorKind возвращает стабильную метку ошибки для логов и метрик.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPagination):
		return "invalid_pagination"
	case IsValidation(err):
		return "invalid_input"
	case errors.Is(err, ErrCorruptRow):
		return "corrupt_row"
	case errors.Is(err, ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, ErrPoolUnavailable):
		return "pool_unavailable"
	case errors.Is(err, ErrStoreRead):
		return "store_read"
	case errors.Is(err, ErrStoreWrite):
		return "store_write"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "unknown"
	}
}
