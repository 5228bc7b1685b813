package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/guardhire/guardhire-api/internal/model"
)

type NewsRepo struct{ db *sql.DB }

func NewNewsRepo(db *sql.DB) *NewsRepo { return &NewsRepo{db: db} }

// List returns all news, newest first.
func (r *NewsRepo) List(ctx context.Context) ([]model.News, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, description, created_at FROM news ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.News{}
	for rows.Next() {
		var n model.News
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NewsRepo) Get(ctx context.Context, id int64) (model.News, error) {
	var n model.News
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, description, created_at FROM news WHERE id = ?", id).
		Scan(&n.ID, &n.Title, &n.Description, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	return n, err
}

func (r *NewsRepo) Create(ctx context.Context, title, description string) (model.News, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO news (title, description) VALUES (?, ?)", title, description)
	if err != nil {
		return model.News{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.News{}, err
	}
	return r.Get(ctx, id)
}

func (r *NewsRepo) Update(ctx context.Context, id int64, title, description string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE news SET title = ?, description = ? WHERE id = ?", title, description, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *NewsRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM news WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
