package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
    for _, r := range AllRoles {
        got, err := ParseRole(" " + string(r) + " ")
        require.NoError(t, err)
        assert.Equal(t, r, got)
    }
    got, err := ParseRole("ADMIN")
    require.NoError(t, err)
    assert.Equal(t, RoleAdmin, got)

    _, err = ParseRole("owner")
    assert.Error(t, err)
    assert.False(t, Role("root").Valid())
}

func TestParseOrderStatus(t *testing.T) {
    tests := map[string]OrderStatus{
        "nowe":        OrderNew,
        "new":         OrderNew,
        "w trakcie":   OrderInProgress,
        "in_progress": OrderInProgress,
        "Zakończone":  OrderCompleted,
        "completed":   OrderCompleted,
        "anulowane":   OrderCancelled,
        "canceled":    OrderCancelled,
    }
    for in, want := range tests {
        got, err := ParseOrderStatus(in)
        require.NoError(t, err, in)
        assert.Equal(t, want, got, in)
    }
    _, err := ParseOrderStatus(LegacyPaidMarker)
    assert.Error(t, err)
    _, err = ParseOrderStatus("whatever")
    assert.Error(t, err)
}

func TestOrderTransitions(t *testing.T) {
    assert.True(t, OrderNew.CanTransition(OrderInProgress))
    assert.True(t, OrderNew.CanTransition(OrderCancelled))
    assert.True(t, OrderInProgress.CanTransition(OrderCompleted))
    assert.True(t, OrderInProgress.CanTransition(OrderCancelled))

    assert.False(t, OrderNew.CanTransition(OrderCompleted))
    assert.False(t, OrderCompleted.CanTransition(OrderInProgress))
    assert.False(t, OrderCancelled.CanTransition(OrderNew))
    assert.False(t, OrderInProgress.CanTransition(OrderNew))

    assert.True(t, OrderCompleted.Final())
    assert.True(t, OrderCancelled.Final())
    assert.False(t, OrderNew.Final())
}

func TestParsePaymentMarker(t *testing.T) {
    m, err := ParsePaymentMarker("")
    require.NoError(t, err)
    assert.Equal(t, PaymentUnpaid, m)

    m, err = ParsePaymentMarker(LegacyPaidMarker)
    require.NoError(t, err)
    assert.Equal(t, PaymentPaid, m)

    _, err = ParsePaymentMarker("half")
    assert.Error(t, err)
}

func TestGatewayPaymentStatus(t *testing.T) {
    assert.Equal(t, PaymentCompleted, GatewayPaymentStatus("COMPLETED"))
    assert.Equal(t, PaymentCompleted, GatewayPaymentStatus("completed"))
    assert.Equal(t, PaymentCancelled, GatewayPaymentStatus("CANCELED"))
    assert.Equal(t, PaymentPending, GatewayPaymentStatus("PENDING"))
    assert.Equal(t, PaymentWaitingForConfirmation, GatewayPaymentStatus("WAITING_FOR_CONFIRMATION"))
    assert.Equal(t, PaymentStatus("refunded"), GatewayPaymentStatus("Refunded"))

    assert.True(t, PaymentPending.Open())
    assert.False(t, PaymentCompleted.Open())
    assert.False(t, PaymentStatus("refunded").Open())
}
