// Package notify provides order.Notifier implementations. The AMQP variant
// publishes order lifecycle events to a topic exchange for front-of-house
// and kitchen displays; delivery is best-effort and failures never affect
// the triggering mutation.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"comanda/internal/domain/money"
	"comanda/internal/domain/order"
)

const (
	exchangeName = "orders.events"

	routingKeyCreated = "order.created"
	routingKeyUpdated = "order.updated"
	routingKeyDeleted = "order.deleted"
)

var _ order.Notifier = (*AMQPNotifier)(nil)

// AMQPNotifier publishes order events to a RabbitMQ topic exchange.
type AMQPNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	lg      *zap.Logger
}

// NewAMQPNotifier dials the broker, declares the topic exchange, and
// returns a ready notifier.
func NewAMQPNotifier(url string, lg *zap.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPNotifier{conn: conn, channel: ch, lg: lg}, nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		return err
	}
	return n.conn.Close()
}

// orderEvent is the published payload. Money fields are six-digit decimal
// strings like everywhere else on the wire.
type orderEvent struct {
	OrderID       string    `json:"orderId"`
	Type          string    `json:"type"`
	LinkedOrderID string    `json:"linkedOrderId,omitempty"`
	Table         string    `json:"table,omitempty"`
	Status        string    `json:"status,omitempty"`
	Total         string    `json:"total,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// OrderCreated publishes an order.created event.
func (n *AMQPNotifier) OrderCreated(ctx context.Context, o *order.Order) {
	n.publish(ctx, routingKeyCreated, eventFromOrder(o))
}

// OrderUpdated publishes an order.updated event.
func (n *AMQPNotifier) OrderUpdated(ctx context.Context, o *order.Order) {
	n.publish(ctx, routingKeyUpdated, eventFromOrder(o))
}

// OrderDeleted publishes an order.deleted event carrying only the id.
func (n *AMQPNotifier) OrderDeleted(ctx context.Context, id string) {
	n.publish(ctx, routingKeyDeleted, orderEvent{OrderID: id, OccurredAt: time.Now().UTC()})
}

func eventFromOrder(o *order.Order) orderEvent {
	return orderEvent{
		OrderID:       o.ID,
		Type:          string(o.Type),
		LinkedOrderID: o.LinkedOrderID,
		Table:         o.Table,
		Status:        string(o.Status),
		Total:         money.Format(o.Total),
		OccurredAt:    time.Now().UTC(),
	}
}

// publish serializes and sends a single event. Errors are logged and
// dropped: the persisted mutation must never be rolled back because a
// display missed an update.
func (n *AMQPNotifier) publish(ctx context.Context, routingKey string, event orderEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		n.lg.Error("marshal order event", zap.String("routing_key", routingKey), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(pubCtx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		n.lg.Error("publish order event",
			zap.String("routing_key", routingKey),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return
	}

	n.lg.Debug("published order event",
		zap.String("routing_key", routingKey),
		zap.String("order_id", event.OrderID),
	)
}
