package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// statusClientClosedRequest — нестандартный код nginx для запроса, брошенного клиентом.
const statusClientClosedRequest = 499

const (
	codeNotFound             = "not_found"
	codeMethodNotAllowed     = "method_not_allowed"
	codeInvalidPagination    = "invalid_pagination"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codePoolExhausted        = "pool_exhausted"
	codeStoreUnavailable     = "store_unavailable"
	codeTimeout              = "timeout"
	codeRequestCanceled      = "request_canceled"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeServiceError переводит ошибку из таксономии в HTTP-ответ.
// Текст внутренних ошибок наружу не отдаётся.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "order not found")
	case errors.Is(err, domain.ErrInvalidPagination):
		writeError(w, http.StatusBadRequest, codeInvalidPagination, err.Error())
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, err.Error())
	case errors.Is(err, domain.ErrPoolExhausted):
		writeError(w, http.StatusServiceUnavailable, codePoolExhausted, "no database connection available, retry later")
	case errors.Is(err, domain.ErrPoolUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "database unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, "request deadline exceeded")
	case errors.Is(err, context.Canceled):
		writeError(w, statusClientClosedRequest, codeRequestCanceled, "request canceled")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
