package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/guardhire/guardhire-api/internal/model"
)

// OrderRepo provides CRUD operations for orders.  Status values are
// validated by callers; the repository stores whatever model value it is
// handed.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, name, description, status, date, latitude, longitude, payment_status, created_by, assigned_guard, created_at`

func scanOrder(s rowScanner) (model.Order, error) {
    var (
        o            model.Order
        status, paid string
    )
    err := s.Scan(&o.ID, &o.Name, &o.Description, &status, &o.Date, &o.Latitude, &o.Longitude,
        &paid, &o.CreatedBy, &o.AssignedGuard, &o.CreatedAt)
    o.Status = model.OrderStatus(status)
    o.PaymentStatus = model.PaymentMarker(paid)
    return o, err
}

func (r *OrderRepo) query(ctx context.Context, q string, args ...any) ([]model.Order, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Order{}
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}

// List returns all orders, newest first.
func (r *OrderRepo) List(ctx context.Context) ([]model.Order, error) {
    return r.query(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC")
}

// ListForProfile returns the orders a profile created or is assigned to.
func (r *OrderRepo) ListForProfile(ctx context.Context, profileID int64) ([]model.Order, error) {
    return r.query(ctx,
        "SELECT "+orderColumns+" FROM orders WHERE created_by = ? OR assigned_guard = ? ORDER BY created_at DESC, id DESC",
        profileID, profileID)
}

// Create inserts o and reloads it so defaults are populated.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
    if o.PaymentStatus == "" {
        o.PaymentStatus = model.PaymentUnpaid
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO orders (name, description, status, date, latitude, longitude, payment_status, created_by, assigned_guard)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        o.Name, o.Description, string(o.Status), o.Date, o.Latitude, o.Longitude,
        string(o.PaymentStatus), o.CreatedBy, o.AssignedGuard)
    if err != nil {
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
    *o = stored
    return nil
}

// Get returns the order with the given id.
func (r *OrderRepo) Get(ctx context.Context, id int64) (model.Order, error) {
    o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
    if errors.Is(err, sql.ErrNoRows) {
        return o, ErrNotFound
    }
    return o, err
}

// Update overwrites name, status and date.
func (r *OrderRepo) Update(ctx context.Context, id int64, name string, status model.OrderStatus, date string) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET name = ?, status = ?, date = ? WHERE id = ?", name, string(status), date, id)
    if err != nil {
        return err
    }
    return requireAffected(res)
}

// UpdateStatus moves an order from one status to another.  The write only
// applies while the row still has status from; a concurrent change yields
// ErrVersionConflict.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET status = ? WHERE id = ? AND status = ?", string(to), id, string(from))
    if err != nil {
        return err
    }
    return r.casResult(ctx, res, id)
}

// Accept assigns guardID to an unassigned new order and starts it.
func (r *OrderRepo) Accept(ctx context.Context, id, guardID int64) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE orders SET assigned_guard = ?, status = ?
         WHERE id = ? AND status = ? AND (assigned_guard IS NULL OR assigned_guard = ?)`,
        guardID, string(model.OrderInProgress), id, string(model.OrderNew), guardID)
    if err != nil {
        return err
    }
    return r.casResult(ctx, res, id)
}

func (r *OrderRepo) casResult(ctx context.Context, res sql.Result, id int64) error {
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

// SetPaymentStatus updates the payment marker of an order.
func (r *OrderRepo) SetPaymentStatus(ctx context.Context, id int64, marker model.PaymentMarker) error {
    res, err := r.db.ExecContext(ctx, "UPDATE orders SET payment_status = ? WHERE id = ?", string(marker), id)
    if err != nil {
        return err
    }
    return requireAffected(res)
}

// Assign sets the assigned guard of an order.
func (r *OrderRepo) Assign(ctx context.Context, id, guardID int64) error {
    res, err := r.db.ExecContext(ctx, "UPDATE orders SET assigned_guard = ? WHERE id = ?", guardID, id)
    if err != nil {
        return err
    }
    return requireAffected(res)
}

// Delete removes an order.
func (r *OrderRepo) Delete(ctx context.Context, id int64) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
    if err != nil {
        return err
    }
    return requireAffected(res)
}
