// Package service holds workflows shared by several handlers.
package service

import (
    "context"
    "errors"
    "time"

    "github.com/rs/zerolog"

    "github.com/guardhire/guardhire-api/internal/model"
    "github.com/guardhire/guardhire-api/internal/queue"
    "github.com/guardhire/guardhire-api/internal/repository"
)

// maxStatusAttempts bounds the compare-and-swap retry loop.
const maxStatusAttempts = 5

// ErrTerminal is returned when a payment already has a different terminal
// status.
var ErrTerminal = errors.New("payment already settled")

// PaymentStore is the persistence a PaymentService needs.
type PaymentStore interface {
    Get(ctx context.Context, id int64) (model.Payment, error)
    GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Payment, error)
    CompareAndSetStatus(ctx context.Context, id, version int64, status model.PaymentStatus) error
}

// PaymentService applies payment status changes.  The admin confirmation
// and the gateway webhook may race on the same row; both go through
// SetStatus, which uses the row version so neither write is lost and a
// terminal status is never overwritten.
type PaymentService struct {
    store     PaymentStore
    publisher queue.Publisher
    log       zerolog.Logger
}

func NewPaymentService(store PaymentStore, publisher queue.Publisher, log zerolog.Logger) *PaymentService {
    return &PaymentService{store: store, publisher: publisher, log: log}
}

// SetStatus moves payment id to status.  Writing the status a payment
// already has is a no-op success, and an open payment never moves back to
// pending.  It returns repository.ErrNotFound for
// unknown ids and ErrTerminal when the payment was settled differently.
func (s *PaymentService) SetStatus(ctx context.Context, id int64, status model.PaymentStatus) (model.Payment, error) {
    return s.apply(ctx, status, func() (model.Payment, error) { return s.store.Get(ctx, id) })
}

// SetStatusByGatewayOrder is SetStatus keyed by the gateway order id.
func (s *PaymentService) SetStatusByGatewayOrder(ctx context.Context, gatewayOrderID string, status model.PaymentStatus) (model.Payment, error) {
    return s.apply(ctx, status, func() (model.Payment, error) { return s.store.GetByGatewayOrderID(ctx, gatewayOrderID) })
}

func (s *PaymentService) apply(ctx context.Context, status model.PaymentStatus, load func() (model.Payment, error)) (model.Payment, error) {
    for attempt := 0; attempt < maxStatusAttempts; attempt++ {
        p, err := load()
        if err != nil {
            return p, err
        }
        if p.Status == status {
            return p, nil
        }
        if !p.Status.Open() {
            return p, ErrTerminal
        }
        // the gateway may deliver PENDING after WAITING_FOR_CONFIRMATION
        if status == model.PaymentPending {
            return p, nil
        }
        err = s.store.CompareAndSetStatus(ctx, p.ID, p.Version, status)
        if errors.Is(err, repository.ErrVersionConflict) {
            s.log.Debug().Int64("payment_id", p.ID).Int("attempt", attempt+1).Msg("payment version conflict, retrying")
            continue
        }
        if err != nil {
            return p, err
        }
        p.Status = status
        p.Version++
        s.announce(ctx, p)
        return p, nil
    }
    return model.Payment{}, repository.ErrVersionConflict
}

func (s *PaymentService) announce(ctx context.Context, p model.Payment) {
    ev := queue.PaymentStatusChangedEvent{
        PaymentID: p.ID,
        OrderID:   p.OrderID,
        Status:    p.Status,
        ChangedAt: time.Now().UTC().Format(time.RFC3339),
    }
    if p.GatewayOrderID != nil {
        ev.GatewayOrderID = *p.GatewayOrderID
    }
    // failures are logged by the publisher
    _ = s.publisher.PublishPaymentStatusChanged(ctx, ev)
}
