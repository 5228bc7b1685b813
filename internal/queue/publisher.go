package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// Publisher emits domain events.  Implementations log failures and return
// them so callers can ignore the error without interrupting a request.
type Publisher interface {
    PublishOrderStatusChanged(ctx context.Context, ev OrderStatusChangedEvent) error
    PublishPaymentStatusChanged(ctx context.Context, ev PaymentStatusChangedEvent) error
}

// NewPublisher returns an AMQP publisher for url, or a no-op publisher when
// url is empty.
func NewPublisher(url string, log zerolog.Logger) Publisher {
    if url == "" {
        return NopPublisher{}
    }
    return &AMQPPublisher{url: url, log: log, timeout: 3 * time.Second}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishOrderStatusChanged(context.Context, OrderStatusChangedEvent) error {
    return nil
}

func (NopPublisher) PublishPaymentStatusChanged(context.Context, PaymentStatusChangedEvent) error {
    return nil
}

// AMQPPublisher opens a short-lived connection per event.  Event volume is
// a handful per order, so no connection is kept open between requests.
type AMQPPublisher struct {
    url     string
    log     zerolog.Logger
    timeout time.Duration
}

func (p *AMQPPublisher) PublishOrderStatusChanged(ctx context.Context, ev OrderStatusChangedEvent) error {
    return p.publish(ctx, OrderStatusQueue, ev)
}

func (p *AMQPPublisher) PublishPaymentStatusChanged(ctx context.Context, ev PaymentStatusChangedEvent) error {
    return p.publish(ctx, PaymentStatusQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) error {
    err := p.send(ctx, queue, event)
    if err != nil {
        p.log.Warn().Err(err).Str("queue", queue).Msg("publish event failed")
    }
    return err
}

func (p *AMQPPublisher) send(ctx context.Context, queue string, event any) error {
    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
    defer cancel()

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if err := declare(ch, queue); err != nil {
        return err
    }

    return ch.PublishWithContext(ctx,
        "",    // default exchange
        queue, // routing key = queue name
        false, // mandatory
        false, // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent, // store on disk
            Timestamp:    time.Now().UTC(),
            Body:         body,
        },
    )
}

func declare(ch *amqp.Channel, queue string) error {
    _, err := ch.QueueDeclare(
        queue, // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    )
    return err
}
