// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"web3folio/internal/model"
)

const tagColumns = `id, name, slug, created_at, updated_at`

func scanTag(row *sql.Row) (model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// UpsertTagParams holds the fields for UpsertTag.
type UpsertTagParams struct {
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertTag inserts a tag keyed by slug, or returns the existing row when the
// slug is already taken. A single atomic statement, so concurrent creators of
// the same brand-new tag converge on one row without a retry loop.
func (q *Queries) UpsertTag(ctx context.Context, arg UpsertTagParams) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET name = tags.name
		RETURNING `+tagColumns,
		arg.Name, arg.Slug, arg.CreatedAt, arg.UpdatedAt)
	return scanTag(row)
}

// GetTagBySlug returns the tag with the given slug.
func (q *Queries) GetTagBySlug(ctx context.Context, slug string) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug)
	return scanTag(row)
}

// ListTags returns all tags ordered by name.
func (q *Queries) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountTags returns the total number of tags.
func (q *Queries) CountTags(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n)
	return n, err
}
