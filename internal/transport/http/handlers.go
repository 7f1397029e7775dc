// Package httpapi — HTTP-ресурс /orders поверх сервиса заказов.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const (
	defaultPage    = 1
	defaultPerPage = 10

	maxBodyBytes = 1 << 20
)

// OrderService — то, что обработчикам нужно от прикладного слоя.
type OrderService interface {
	Create(ctx context.Context, in domain.CreateOrder) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, page, perPage int) (domain.Page, error)
	Update(ctx context.Context, id string, in domain.UpdateOrder) (domain.Order, error)
	Delete(ctx context.Context, id string) (string, error)
}

type orderHandlers struct {
	svc OrderService
}

func (h orderHandlers) create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	order, err := h.svc.Create(r.Context(), req.toCreate())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h orderHandlers) list(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPagination, err.Error())
		return
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPagination, err.Error())
		return
	}

	result, err := h.svc.List(r.Context(), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(result))
}

func (h orderHandlers) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h orderHandlers) update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	order, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], req.toUpdate())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h orderHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id})
}

func decodeOrderRequest(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return orderRequest{}, false
	}
	if field := req.missingField(); field != "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, field+" is required")
		return orderRequest{}, false
	}
	return req, true
}

// queryInt читает целый параметр; отсутствующий заменяется значением по умолчанию.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
