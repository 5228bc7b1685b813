// Package queue publishes domain events to RabbitMQ and consumes them to
// create in-app notifications.
package queue

import "github.com/guardhire/guardhire-api/internal/model"

// Durable queue names; events go through the default exchange with the
// queue name as routing key.
const (
    OrderStatusQueue   = "order.status_changed"
    PaymentStatusQueue = "payment.status_changed"
)

// OrderStatusChangedEvent is published after an order changes status.  It
// carries the parties to notify so consumers need no extra lookup.
type OrderStatusChangedEvent struct {
    OrderID       int64             `json:"order_id"`
    OrderName     string            `json:"order_name"`
    From          model.OrderStatus `json:"from"`
    To            model.OrderStatus `json:"to"`
    CreatedBy     *int64            `json:"created_by,omitempty"`
    AssignedGuard *int64            `json:"assigned_guard,omitempty"`
    ChangedBy     int64             `json:"changed_by,omitempty"`
    ChangedAt     string            `json:"changed_at"`
}

// PaymentStatusChangedEvent is published after a payment changes status,
// whether through an admin confirmation or a gateway notification.
type PaymentStatusChangedEvent struct {
    PaymentID      int64               `json:"payment_id"`
    OrderID        *int64              `json:"order_id,omitempty"`
    Status         model.PaymentStatus `json:"status"`
    GatewayOrderID string              `json:"gateway_order_id,omitempty"`
    ChangedAt      string              `json:"changed_at"`
}
