package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/guardhire/guardhire-api/internal/model"
)

// NotificationWriter stores notifications produced from events.
type NotificationWriter interface {
    Create(ctx context.Context, n *model.Notification) error
}

// OrderReader resolves the order a payment belongs to.
type OrderReader interface {
    Get(ctx context.Context, id int64) (model.Order, error)
}

// Consumer turns status events into notifications for the affected
// profiles.
type Consumer struct {
    url           string
    notifications NotificationWriter
    orders        OrderReader
    log           zerolog.Logger
}

func NewConsumer(url string, notifications NotificationWriter, orders OrderReader, log zerolog.Logger) *Consumer {
    return &Consumer{url: url, notifications: notifications, orders: orders, log: log}
}

// Run connects to the broker and consumes both event queues until ctx is
// cancelled, reconnecting with exponential backoff.  Malformed messages are
// logged and rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("consumer: dial broker failed")
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn().Err(err).Msg("consumer: loop ended, reconnecting")
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn().Err(err).Msg("consumer: set QoS failed")
    }

    orderMsgs, err := c.subscribe(ch, OrderStatusQueue)
    if err != nil {
        return err
    }
    paymentMsgs, err := c.subscribe(ch, PaymentStatusQueue)
    if err != nil {
        return err
    }

    for {
        var (
            d     amqp.Delivery
            ok    bool
            queue string
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-orderMsgs:
            queue = OrderStatusQueue
        case d, ok = <-paymentMsgs:
            queue = PaymentStatusQueue
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := c.handleMessage(ctx, queue, d.Body); err != nil {
            c.log.Error().Err(err).Str("queue", queue).Msg("consumer: handle message failed")
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
    if err := declare(ch, queue); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

func (c *Consumer) handleMessage(ctx context.Context, queue string, body []byte) error {
    switch queue {
    case OrderStatusQueue:
        var ev OrderStatusChangedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        title := "Zmiana statusu zlecenia"
        desc := fmt.Sprintf("Zlecenie #%d %q ma nowy status: %s.", ev.OrderID, ev.OrderName, ev.To)
        return c.notify(ctx, "order", title, desc, ev.ChangedBy, ev.CreatedBy, ev.AssignedGuard)

    case PaymentStatusQueue:
        var ev PaymentStatusChangedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.OrderID == nil {
            return nil
        }
        o, err := c.orders.Get(ctx, *ev.OrderID)
        if err != nil {
            return fmt.Errorf("load order %d: %w", *ev.OrderID, err)
        }
        title := "Płatność za zlecenie"
        desc := fmt.Sprintf("Płatność #%d za zlecenie #%d ma status: %s.", ev.PaymentID, o.ID, ev.Status)
        return c.notify(ctx, "payment", title, desc, 0, o.CreatedBy)
    }
    return fmt.Errorf("unknown queue %q", queue)
}

// notify writes one notification per distinct recipient, skipping the
// profile that caused the change.
func (c *Consumer) notify(ctx context.Context, kind, title, desc string, actor int64, recipients ...*int64) error {
    seen := map[int64]bool{}
    for _, r := range recipients {
        if r == nil || *r == actor || seen[*r] {
            continue
        }
        seen[*r] = true
        id := *r
        n := &model.Notification{ProfileID: &id, Title: title, Description: desc, Type: kind}
        if err := c.notifications.Create(ctx, n); err != nil {
            return err
        }
    }
    return nil
}
