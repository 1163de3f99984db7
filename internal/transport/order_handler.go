package transport

import (
	"net/http"
	"time"

	"warehouse-api/internal/order"
	"warehouse-api/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type orderItemRequest struct {
	ProductID *int64 `json:"product_id" validate:"required,gte=1"`
	Quantity  *int   `json:"quantity" validate:"required,gte=1,lte=2147483647"`
}

type orderCreateRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderStatusRequest struct {
	Status *string `json:"status" validate:"required,min=1"`
}

type orderItemResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Status    string              `json:"status"`
	Items     []orderItemResponse `json:"items"`
}

func newOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return orderResponse{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Status:    o.Status,
		Items:     items,
	}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemInput{ProductID: *it.ProductID, Quantity: *it.Quantity})
	}

	o, err := h.svc.Create(r.Context(), items)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req orderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, *req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid order id")
		return 0, false
	}
	if id < 1 {
		writeServiceError(w, r, order.ErrOrderNotFound)
		return 0, false
	}
	return id, true
}
