package repository

import (
	"context"
	"database/sql"

	"github.com/guardhire/guardhire-api/internal/model"
)

type CommentRepo struct{ db *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// Create inserts c and fills its ID and CreatedAt.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (order_id, author, content, rating) VALUES (?, ?, ?, ?)",
		c.OrderID, c.Author, c.Content, c.Rating)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM comments WHERE id = ?", id).Scan(&c.CreatedAt)
}

// ListByOrder returns the comments of an order, newest first.
func (r *CommentRepo) ListByOrder(ctx context.Context, orderID int64) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, author, content, rating, created_at
		 FROM comments WHERE order_id = ? ORDER BY created_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Author, &c.Content, &c.Rating, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
