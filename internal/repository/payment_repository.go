package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/guardhire/guardhire-api/internal/database"
    "github.com/guardhire/guardhire-api/internal/model"
)

// PaymentRepo persists payments.  Status writes are optimistic: every
// update bumps version and only applies when the caller's version is still
// current.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to db.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, order_id, amount_minor, currency, status, gateway_order_id, ext_order_id, buyer_email, version, created_at, updated_at`

func scanPayment(s rowScanner) (model.Payment, error) {
    var (
        p      model.Payment
        status string
    )
    err := s.Scan(&p.ID, &p.OrderID, &p.AmountMinor, &p.Currency, &status, &p.GatewayOrderID,
        &p.ExtOrderID, &p.BuyerEmail, &p.Version, &p.CreatedAt, &p.UpdatedAt)
    p.Status = model.PaymentStatus(status)
    p.Amount = float64(p.AmountMinor) / 100.0
    return p, err
}

// Insert stores a new payment and fills ID, Version and timestamps.
func (r *PaymentRepo) Insert(ctx context.Context, p *model.Payment) error {
    if p.Status == "" {
        p.Status = model.PaymentPending
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO payments (order_id, amount_minor, currency, status, gateway_order_id, ext_order_id, buyer_email)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        p.OrderID, p.AmountMinor, p.Currency, string(p.Status), p.GatewayOrderID, p.ExtOrderID, p.BuyerEmail)
    if err != nil {
        if database.IsUniqueViolation(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := r.Get(ctx, id)
    if err != nil {
        return err
    }
    *p = stored
    return nil
}

// AttachGateway records the gateway order created for an existing open
// payment.  A payment keeps its first gateway order: attaching to a row that
// already has one, or is settled, yields ErrVersionConflict.
func (r *PaymentRepo) AttachGateway(ctx context.Context, id int64, gatewayOrderID, extOrderID, buyerEmail string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE payments
         SET gateway_order_id = ?, ext_order_id = ?, buyer_email = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
         WHERE id = ? AND status IN ('pending', 'waiting_for_confirmation') AND gateway_order_id IS NULL`,
        gatewayOrderID, extOrderID, buyerEmail, id)
    if err != nil {
        if database.IsUniqueViolation(err) {
            return ErrDuplicate
        }
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    if _, err := r.Get(ctx, id); err != nil {
        return err
    }
    return ErrVersionConflict
}

// Get returns the payment with the given id.
func (r *PaymentRepo) Get(ctx context.Context, id int64) (model.Payment, error) {
    p, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
    if errors.Is(err, sql.ErrNoRows) {
        return p, ErrNotFound
    }
    return p, err
}

// GetByGatewayOrderID returns the payment linked to a gateway order.
func (r *PaymentRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Payment, error) {
    p, err := scanPayment(r.db.QueryRowContext(ctx,
        "SELECT "+paymentColumns+" FROM payments WHERE gateway_order_id = ?", gatewayOrderID))
    if errors.Is(err, sql.ErrNoRows) {
        return p, ErrNotFound
    }
    return p, err
}

// CompareAndSetStatus writes status when the row is still at version.  When
// the new status is completed the owning order is marked paid in the same
// transaction.  A stale version yields ErrVersionConflict.
func (r *PaymentRepo) CompareAndSetStatus(ctx context.Context, id, version int64, status model.PaymentStatus) error {
    return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
        res, err := tx.ExecContext(ctx,
            `UPDATE payments SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
             WHERE id = ? AND version = ?`,
            string(status), id, version)
        if err != nil {
            return err
        }
        n, err := res.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrVersionConflict
        }
        if status != model.PaymentCompleted {
            return nil
        }
        _, err = tx.ExecContext(ctx,
            `UPDATE orders SET payment_status = ?
             WHERE id = (SELECT order_id FROM payments WHERE id = ?)`,
            string(model.PaymentPaid), id)
        return err
    })
}

func (r *PaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Payment{}
    for rows.Next() {
        p, err := scanPayment(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

// List returns every payment, newest first.
func (r *PaymentRepo) List(ctx context.Context) ([]model.Payment, error) {
    return r.query(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY created_at DESC, id DESC")
}

// ListByStatus returns payments in the given status, newest first.
func (r *PaymentRepo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
    return r.query(ctx,
        "SELECT "+paymentColumns+" FROM payments WHERE status = ? ORDER BY created_at DESC, id DESC", string(status))
}

// Wipe deletes every payment and returns how many rows were removed.
func (r *PaymentRepo) Wipe(ctx context.Context) (int64, error) {
    res, err := r.db.ExecContext(ctx, "DELETE FROM payments")
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
