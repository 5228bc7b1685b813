package model

import (
    "fmt"
    "strings"
    "time"
)

// OrderStatus is the workflow state of an order.  Values are stored and sent
// to clients with the labels the mobile app displays.
type OrderStatus string

const (
    OrderNew        OrderStatus = "nowe"
    OrderInProgress OrderStatus = "w trakcie"
    OrderCompleted  OrderStatus = "zakończone"
    OrderCancelled  OrderStatus = "anulowane"
)

// LegacyPaidMarker is the value older clients write into the status column
// to flag an order as paid.  It is not a workflow state; see ParseStatusUpdate.
const LegacyPaidMarker = "Opłacono"

// PaymentMarker tracks whether an order has been paid for, independent of
// its workflow status.
type PaymentMarker string

const (
    PaymentUnpaid PaymentMarker = "unpaid"
    PaymentPaid   PaymentMarker = "paid"
)

var orderStatusAliases = map[string]OrderStatus{
    "nowe":        OrderNew,
    "new":         OrderNew,
    "w trakcie":   OrderInProgress,
    "in_progress": OrderInProgress,
    "in progress": OrderInProgress,
    "zakończone":  OrderCompleted,
    "zakonczone":  OrderCompleted,
    "completed":   OrderCompleted,
    "anulowane":   OrderCancelled,
    "cancelled":   OrderCancelled,
    "canceled":    OrderCancelled,
}

// orderTransitions is the workflow graph.  Completed and cancelled are final.
var orderTransitions = map[OrderStatus][]OrderStatus{
    OrderNew:        {OrderInProgress, OrderCancelled},
    OrderInProgress: {OrderCompleted, OrderCancelled},
}

// ParseOrderStatus accepts the stored labels and their English aliases.
func ParseOrderStatus(s string) (OrderStatus, error) {
    if st, ok := orderStatusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
        return st, nil
    }
    return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransition reports whether the workflow allows moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
    for _, allowed := range orderTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// Final reports whether no further transition is possible.
func (s OrderStatus) Final() bool { return len(orderTransitions[s]) == 0 }

// ParsePaymentMarker accepts "paid"/"unpaid" and the legacy paid label.
func ParsePaymentMarker(s string) (PaymentMarker, error) {
    v := strings.TrimSpace(s)
    switch {
    case v == "", strings.EqualFold(v, string(PaymentUnpaid)):
        return PaymentUnpaid, nil
    case strings.EqualFold(v, string(PaymentPaid)), strings.EqualFold(v, LegacyPaidMarker):
        return PaymentPaid, nil
    }
    return "", fmt.Errorf("unknown payment status %q", s)
}

// Order is a unit of guard work posted by a client.
type Order struct {
    ID            int64         `json:"id"`
    Name          string        `json:"name"`
    Description   string        `json:"description"`
    Status        OrderStatus   `json:"status"`
    Date          string        `json:"date"`
    Latitude      *float64      `json:"latitude"`
    Longitude     *float64      `json:"longitude"`
    PaymentStatus PaymentMarker `json:"paymentStatus"`
    CreatedBy     *int64        `json:"createdBy"`
    AssignedGuard *int64        `json:"assignedGuard"`
    CreatedAt     time.Time     `json:"createdAt"`
}
