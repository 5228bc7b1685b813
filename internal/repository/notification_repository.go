package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/guardhire/guardhire-api/internal/database"
	"github.com/guardhire/guardhire-api/internal/model"
)

// NotificationRepo stores per-profile and broadcast notifications.  A NULL
// profile_id addresses every profile.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts n and fills its ID and CreatedAt.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if n.Type == "" {
		n.Type = "info"
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (profile_id, title, description, type) VALUES (?, ?, ?, ?)",
		n.ProfileID, n.Title, n.Description, n.Type)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM notifications WHERE id = ?", id).Scan(&n.CreatedAt)
}

// readExpr yields the per-profile read flag.  Direct rows carry it in
// is_read; broadcasts keep one notification_reads row per reader.
const readExpr = `CASE WHEN n.profile_id IS NULL
		THEN EXISTS (SELECT 1 FROM notification_reads r WHERE r.notification_id = n.id AND r.profile_id = ?)
		ELSE n.is_read <> 0 END`

// ListVisible returns the profile's own notifications and broadcasts,
// newest first.  unreadOnly drops rows the profile already marked read.
func (r *NotificationRepo) ListVisible(ctx context.Context, profileID int64, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT n.id, n.profile_id, n.title, n.description, n.type, ` + readExpr + `, n.created_at
		FROM notifications n
		WHERE (n.profile_id = ? OR n.profile_id IS NULL)`
	args := []any{profileID, profileID}
	if unreadOnly {
		q += " AND NOT (" + readExpr + ")"
		args = append(args, profileID)
	}
	q += " ORDER BY n.created_at DESC, n.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.ProfileID, &n.Title, &n.Description, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read for profileID.  Marking a broadcast
// only affects the caller.  Rows addressed to another profile are reported
// as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, profileID int64) error {
	var owner sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT profile_id FROM notifications WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if owner.Valid {
		if owner.Int64 != profileID {
			return ErrNotFound
		}
		_, err = r.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO notification_reads (notification_id, profile_id) VALUES (?, ?)", id, profileID)
	if database.IsUniqueViolation(err) {
		return nil
	}
	return err
}
