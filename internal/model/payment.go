package model

import (
    "strings"
    "time"
)

// PaymentStatus is the settlement state of a payment.  Besides the constants
// below the webhook may deliver any gateway-specific label, which is stored
// lower-cased.
type PaymentStatus string

const (
    PaymentPending                PaymentStatus = "pending"
    PaymentWaitingForConfirmation PaymentStatus = "waiting_for_confirmation"
    PaymentCompleted              PaymentStatus = "completed"
    PaymentCancelled              PaymentStatus = "cancelled"
)

// GatewayPaymentStatus maps a status reported by the gateway onto the local
// vocabulary.  Unknown labels are kept verbatim in lower case.
func GatewayPaymentStatus(s string) PaymentStatus {
    switch v := strings.ToUpper(strings.TrimSpace(s)); v {
    case "NEW", "PENDING":
        return PaymentPending
    case "WAITING_FOR_CONFIRMATION":
        return PaymentWaitingForConfirmation
    case "COMPLETED":
        return PaymentCompleted
    case "CANCELED", "CANCELLED", "REJECTED":
        return PaymentCancelled
    default:
        return PaymentStatus(strings.ToLower(v))
    }
}

// Open reports whether the payment may still change status.
func (s PaymentStatus) Open() bool {
    return s == PaymentPending || s == PaymentWaitingForConfirmation
}

// Payment is a monetary record tied to an order.  Amounts are kept in minor
// currency units; Amount is the decimal view sent to clients.
type Payment struct {
    ID             int64         `json:"id"`
    OrderID        *int64        `json:"orderId"`
    AmountMinor    int64         `json:"amountMinor"`
    Amount         float64       `json:"amount"`
    Currency       string        `json:"currency"`
    Status         PaymentStatus `json:"status"`
    GatewayOrderID *string       `json:"gatewayOrderId"`
    ExtOrderID     *string       `json:"extOrderId"`
    BuyerEmail     *string       `json:"buyerEmail"`
    Version        int64         `json:"version"`
    CreatedAt      time.Time     `json:"createdAt"`
    UpdatedAt      time.Time     `json:"updatedAt"`
}
