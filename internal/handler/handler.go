// Package handler is the HTTP surface over the order engine: thin route
// handlers that decode requests, delegate to the domain services, and map
// domain errors to stable error codes. All JSON passes through go-faster/jx.
package handler

import (
	"net/http"

	"comanda/internal/domain/auth"
	"comanda/internal/domain/catalog"
	"comanda/internal/domain/order"
)

// Handler carries the domain collaborators for all HTTP routes.
type Handler struct {
	catalog catalog.Repository
	orders  *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(c catalog.Repository, orders *order.Service) *Handler {
	return &Handler{
		catalog: c,
		orders:  orders,
	}
}

// Routes registers all API routes on the given mux. Mutating order routes
// are wrapped with the corresponding permission requirement; the security
// middleware itself is applied by the caller around the whole mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dishes", h.ListDishes)

	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.Handle("POST /api/orders", RequirePermission(auth.ActionCreate, "order", http.HandlerFunc(h.CreateOrder)))
	mux.Handle("POST /api/orders/{id}/items", RequirePermission(auth.ActionUpdate, "order", http.HandlerFunc(h.AddItem)))
	mux.Handle("PUT /api/orders/{id}/lines/{index}", RequirePermission(auth.ActionUpdate, "order", http.HandlerFunc(h.UpdateLineQuantity)))
	mux.Handle("PATCH /api/orders/{id}", RequirePermission(auth.ActionUpdate, "order", http.HandlerFunc(h.UpdateOrder)))
	mux.Handle("DELETE /api/orders/{id}", RequirePermission(auth.ActionDelete, "order", http.HandlerFunc(h.DeleteOrder)))
}
