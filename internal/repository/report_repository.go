package repository

import (
	"context"
	"database/sql"

	"github.com/guardhire/guardhire-api/internal/model"
)

// ReportRepo stores guard reports.  File columns hold paths relative to the
// upload root.
type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

const reportColumns = `r.id, r.order_id, r.guard_id, r.description, r.photo_path, r.audio_path, r.created_at`

// Create inserts rep and fills its ID and CreatedAt.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reports (order_id, guard_id, description, photo_path, audio_path) VALUES (?, ?, ?, ?, ?)",
		rep.OrderID, rep.GuardID, rep.Description, rep.PhotoPath, rep.AudioPath)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = id
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM reports WHERE id = ?", id).Scan(&rep.CreatedAt)
}

func (r *ReportRepo) query(ctx context.Context, q string, args ...any) ([]model.Report, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Report{}
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(&rep.ID, &rep.OrderID, &rep.GuardID, &rep.Description,
			&rep.PhotoPath, &rep.AudioPath, &rep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// ListByOrder returns the reports filed for one order, newest first.
func (r *ReportRepo) ListByOrder(ctx context.Context, orderID int64) ([]model.Report, error) {
	return r.query(ctx,
		"SELECT "+reportColumns+" FROM reports r WHERE r.order_id = ? ORDER BY r.created_at DESC, r.id DESC", orderID)
}

// ListForProfile returns reports the profile filed or that concern orders
// the profile created.
func (r *ReportRepo) ListForProfile(ctx context.Context, profileID int64) ([]model.Report, error) {
	return r.query(ctx,
		`SELECT `+reportColumns+`
		 FROM reports r
		 LEFT JOIN orders o ON o.id = r.order_id
		 WHERE r.guard_id = ? OR o.created_by = ?
		 ORDER BY r.created_at DESC, r.id DESC`, profileID, profileID)
}

// ListAll returns every report, newest first.
func (r *ReportRepo) ListAll(ctx context.Context) ([]model.Report, error) {
	return r.query(ctx, "SELECT "+reportColumns+" FROM reports r ORDER BY r.created_at DESC, r.id DESC")
}
