package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// maxBodyBytes bounds request bodies; order payloads are small.
const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read request body")
		return nil, false
	}
	return body, true
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeCreateOrderRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed order request")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// AddItem handles POST /api/orders/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeItemRequestBody(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed item request")
		return
	}

	o, err := h.orders.AddItem(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// UpdateLineQuantity handles PUT /api/orders/{id}/lines/{index}. A quantity
// of zero removes the line.
func (h *Handler) UpdateLineQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed line index")
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	quantity, err := decodeQuantityBody(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed quantity request")
		return
	}

	o, err := h.orders.UpdateLineQuantity(r.Context(), r.PathValue("id"), index, quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// UpdateOrder handles PATCH /api/orders/{id}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := decodeUpdateOrderRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed update request")
		return
	}

	o, err := h.orders.UpdateOrder(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// DeleteOrder handles DELETE /api/orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
