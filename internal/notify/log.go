package notify

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain/money"
	"comanda/internal/domain/order"
)

var _ order.Notifier = (*LogNotifier)(nil)

// LogNotifier writes order events to the log only. Used when no broker is
// configured, typically in local development and unit tests.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

func (n *LogNotifier) OrderCreated(_ context.Context, o *order.Order) {
	n.lg.Info("order created", zap.String("order_id", o.ID), zap.String("type", string(o.Type)))
}

func (n *LogNotifier) OrderUpdated(_ context.Context, o *order.Order) {
	n.lg.Info("order updated",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("total", money.Format(o.Total)),
	)
}

func (n *LogNotifier) OrderDeleted(_ context.Context, id string) {
	n.lg.Info("order deleted", zap.String("order_id", id))
}
