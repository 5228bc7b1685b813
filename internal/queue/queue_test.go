package queue

import (
    "context"
    "encoding/json"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/guardhire/guardhire-api/internal/model"
    "github.com/guardhire/guardhire-api/internal/repository"
    "github.com/guardhire/guardhire-api/internal/testutil"
)

func i64(v int64) *int64 { return &v }

func newTestConsumer(t *testing.T) (*Consumer, *repository.NotificationRepo, *repository.OrderRepo) {
    t.Helper()
    db := testutil.OpenDB(t)
    notes := repository.NewNotificationRepo(db)
    orders := repository.NewOrderRepo(db)
    return NewConsumer("", notes, orders, zerolog.Nop()), notes, orders
}

func TestHandleOrderStatusChanged(t *testing.T) {
    c, notes, _ := newTestConsumer(t)
    ctx := context.Background()

    body, err := json.Marshal(OrderStatusChangedEvent{
        OrderID: 3, OrderName: "Ochrona", From: model.OrderNew, To: model.OrderInProgress,
        CreatedBy: i64(1), AssignedGuard: i64(2), ChangedBy: 2,
    })
    require.NoError(t, err)
    require.NoError(t, c.handleMessage(ctx, OrderStatusQueue, body))

    forCreator, err := notes.ListVisible(ctx, 1, false)
    require.NoError(t, err)
    require.Len(t, forCreator, 1)
    assert.Equal(t, "order", forCreator[0].Type)
    assert.Contains(t, forCreator[0].Description, "w trakcie")

    forGuard, err := notes.ListVisible(ctx, 2, false)
    require.NoError(t, err)
    assert.Empty(t, forGuard, "the guard caused the change")
}

func TestHandlePaymentStatusChanged(t *testing.T) {
    c, notes, orders := newTestConsumer(t)
    ctx := context.Background()

    o := &model.Order{Name: "x", Status: model.OrderNew, Date: "d", CreatedBy: i64(7)}
    require.NoError(t, orders.Create(ctx, o))

    body, err := json.Marshal(PaymentStatusChangedEvent{PaymentID: 1, OrderID: &o.ID, Status: model.PaymentCompleted})
    require.NoError(t, err)
    require.NoError(t, c.handleMessage(ctx, PaymentStatusQueue, body))

    list, err := notes.ListVisible(ctx, 7, false)
    require.NoError(t, err)
    require.Len(t, list, 1)
    assert.Equal(t, "payment", list[0].Type)

    missing, err := json.Marshal(PaymentStatusChangedEvent{PaymentID: 2, OrderID: i64(999), Status: model.PaymentCompleted})
    require.NoError(t, err)
    assert.Error(t, c.handleMessage(ctx, PaymentStatusQueue, missing))

    noOrder, err := json.Marshal(PaymentStatusChangedEvent{PaymentID: 3, Status: model.PaymentCancelled})
    require.NoError(t, err)
    assert.NoError(t, c.handleMessage(ctx, PaymentStatusQueue, noOrder))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
    c, _, _ := newTestConsumer(t)
    ctx := context.Background()
    assert.Error(t, c.handleMessage(ctx, OrderStatusQueue, []byte("{")))
    assert.Error(t, c.handleMessage(ctx, "other.queue", []byte("{}")))
}

func TestNewPublisherWithoutURLIsNop(t *testing.T) {
    p := NewPublisher("", zerolog.Nop())
    _, ok := p.(NopPublisher)
    require.True(t, ok)
    assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), OrderStatusChangedEvent{OrderID: 1}))
    assert.NoError(t, p.PublishPaymentStatusChanged(context.Background(), PaymentStatusChangedEvent{PaymentID: 1}))
}
