package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ListDishes handles GET /api/dishes.
func (h *Handler) ListDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.catalog.ListDishes(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list dishes", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, d := range dishes {
				encodeDish(e, d)
			}
		})
	})
}
