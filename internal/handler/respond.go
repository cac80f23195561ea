package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"comanda/internal/domain/catalog"
	"comanda/internal/domain/order"
)

// writeJSON encodes a body built by fn and writes it with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

// writeError writes the stable {code, message} error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// respondDomainError maps domain errors to HTTP status codes. Unknown
// errors become an opaque 500; the cause is logged, never echoed.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrDishNotFound),
		errors.Is(err, order.ErrOptionNotFound),
		errors.Is(err, order.ErrOptionValueNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
		return

	case errors.Is(err, order.ErrHasLinkedOrders):
		writeError(w, r, http.StatusConflict, err.Error())
		return

	case errors.Is(err, order.ErrOrderClosed),
		errors.Is(err, order.ErrInvalidQuantity):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return

	case errors.Is(err, order.ErrLinkRequired),
		errors.Is(err, order.ErrLinkForbidden):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var tamperErr *order.TamperError
	if errors.As(err, &tamperErr) {
		writeError(w, r, http.StatusBadRequest, tamperErr.Error())
		return
	}

	var transitionErr *order.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		writeError(w, r, http.StatusUnprocessableEntity, transitionErr.Error())
		return
	}

	var indexErr *order.IndexOutOfRangeError
	if errors.As(err, &indexErr) {
		writeError(w, r, http.StatusUnprocessableEntity, indexErr.Error())
		return
	}

	zctx.From(r.Context()).Error("unhandled domain error", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
