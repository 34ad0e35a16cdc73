package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"
)

// RoutingKeyOrderCompleted is published once an order has been committed.
const RoutingKeyOrderCompleted = "order.completed"

// OrderCompletedItem is one cart line of a completed order.
type OrderCompletedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderCompleted announces a fulfilled order. It never carries the code secrets.
type OrderCompleted struct {
	EventID    string               `json:"event_id"`
	OrderID    string               `json:"order_id"`
	UserID     string               `json:"user_id"`
	TotalPrice string               `json:"total_price"`
	Items      []OrderCompletedItem `json:"items"`
	CodeCount  int                  `json:"code_count"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Encode marshals the event to JSON.
func (e OrderCompleted) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order completed event: %w", err)
	}
	return body, nil
}

// DecodeOrderCompleted parses an order.completed message body.
func DecodeOrderCompleted(body []byte) (OrderCompleted, error) {
	var e OrderCompleted
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderCompleted{}, fmt.Errorf("failed to unmarshal order completed event: %w", err)
	}
	if e.OrderID == "" {
		return OrderCompleted{}, fmt.Errorf("order completed event without order_id")
	}
	return e, nil
}

// DeliveryLogger returns a consumer handler that records the fulfilment notice
// of every order.completed message. Messages with other routing keys are acked and ignored.
// Undecodable bodies are logged and acked so they do not loop through the queue.
func DeliveryLogger(logger *slog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		if msg.RoutingKey != RoutingKeyOrderCompleted {
			logger.Debug("ignoring order event", "routing_key", msg.RoutingKey)
			return nil
		}
		e, err := DecodeOrderCompleted(msg.Body)
		if err != nil {
			logger.Error("dropping malformed order event", "delivery_tag", msg.DeliveryTag, "error", err)
			return nil
		}
		logger.Info("gift codes ready for delivery",
			"order_id", e.OrderID,
			"user_id", e.UserID,
			"code_count", e.CodeCount,
			"total_price", e.TotalPrice,
		)
		return nil
	}
}
