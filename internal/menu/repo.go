// Package menu is the catalog collaborator: point-in-time price and
// availability reads, plus the admin edits that make those reads change.
package menu

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullraaa/mai-inji/internal/money"
)

var ErrNotFound = errors.New("menu item not found")

type Repository interface {
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, includeSoldOut bool) ([]Item, error)
	Update(ctx context.Context, id string, u ItemUpdate) (*Item, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var it Item
	var price int64
	err := r.db.QueryRow(ctx, `
		SELECT id, category_id, name, COALESCE(description,''), price, is_available, COALESCE(image_url,''), created_at, updated_at
		FROM menu_items
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&it.ID, &it.CategoryID, &it.Name, &it.Description, &price, &it.IsAvailable, &it.ImageURL, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	it.Price = money.Kobo(price)
	return &it, nil
}

func (r *PGRepo) List(ctx context.Context, includeSoldOut bool) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, category_id, name, COALESCE(description,''), price, is_available, COALESCE(image_url,''), created_at, updated_at
		FROM menu_items
		WHERE deleted_at IS NULL AND ($1 OR is_available)
		ORDER BY created_at DESC
	`, includeSoldOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var price int64
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.Name, &it.Description, &price, &it.IsAvailable, &it.ImageURL, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.Price = money.Kobo(price)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, id string, u ItemUpdate) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var price any
	if u.Price != nil {
		price = int64(*u.Price)
	}
	var avail any
	if u.IsAvailable != nil {
		avail = *u.IsAvailable
	}
	var desc any
	if u.Description != nil {
		desc = *u.Description
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE menu_items
		SET price        = COALESCE($2, price),
		    is_available = COALESCE($3, is_available),
		    description  = COALESCE($4, description),
		    updated_at   = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, price, avail, desc)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
