// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"web3folio/internal/model"
)

const postColumns = `id, title, slug, excerpt, content, cover_image, published, published_at, author_id, category_id, created_at, updated_at`

func scanPostRow(row *sql.Row) (model.BlogPost, error) {
	var p model.BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverImage,
		&p.Published, &p.PublishedAt, &p.AuthorID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPost(rows *sql.Rows) (model.BlogPost, error) {
	var p model.BlogPost
	err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverImage,
		&p.Published, &p.PublishedAt, &p.AuthorID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	Title       string
	Slug        string
	Excerpt     sql.NullString
	Content     string
	CoverImage  sql.NullString
	Published   bool
	PublishedAt sql.NullTime
	AuthorID    int64
	CategoryID  sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePost inserts a new blog post and returns the created row.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.BlogPost, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO blog_posts (title, slug, excerpt, content, cover_image, published, published_at, author_id, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Excerpt, arg.Content, arg.CoverImage, arg.Published,
		arg.PublishedAt, arg.AuthorID, arg.CategoryID, arg.CreatedAt, arg.UpdatedAt)
	return scanPostRow(row)
}

// GetPostBySlug returns the post with the given slug.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = ?`, slug)
	return scanPostRow(row)
}

// PostSlugExists returns the number of posts holding the given slug (0 or 1).
func (q *Queries) PostSlugExists(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts WHERE slug = ?`, slug).Scan(&n)
	return n, err
}

// PostFilter describes the composable list filters. Zero values mean
// "no constraint"; set filters combine with AND.
type PostFilter struct {
	Published  sql.NullBool
	AuthorID   sql.NullInt64
	CategoryID sql.NullInt64
	TagSlug    sql.NullString
}

// whereClause renders the filter as a WHERE fragment plus bind args.
func (f PostFilter) whereClause() (string, []any) {
	var conds []string
	var args []any

	if f.Published.Valid {
		conds = append(conds, "published = ?")
		args = append(args, f.Published.Bool)
	}
	if f.AuthorID.Valid {
		conds = append(conds, "author_id = ?")
		args = append(args, f.AuthorID.Int64)
	}
	if f.CategoryID.Valid {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID.Int64)
	}
	if f.TagSlug.Valid {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = blog_posts.id AND t.slug = ?)`)
		args = append(args, f.TagSlug.String)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPostsParams holds the fields for ListPosts.
type ListPostsParams struct {
	Filter PostFilter
	Limit  int64
	Offset int64
}

// ListPosts returns the page of posts matching the filter, ordered by
// publish time descending with unpublished (NULL published_at) posts first.
func (q *Queries) ListPosts(ctx context.Context, arg ListPostsParams) ([]model.BlogPost, error) {
	where, args := arg.Filter.whereClause()
	query := `SELECT ` + postColumns + ` FROM blog_posts` + where +
		` ORDER BY (published_at IS NULL) DESC, published_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the total number of posts matching the filter,
// independent of any limit/offset.
func (q *Queries) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	where, args := filter.whereClause()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts`+where, args...).Scan(&n)
	return n, err
}

// AddPostTagParams holds the fields for AddPostTag.
type AddPostTagParams struct {
	PostID int64
	TagID  int64
}

// AddPostTag connects a tag to a post. Idempotent.
func (q *Queries) AddPostTag(ctx context.Context, arg AddPostTagParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)
		ON CONFLICT (post_id, tag_id) DO NOTHING`,
		arg.PostID, arg.TagID)
	return err
}

// ListTagsForPost returns a post's tags ordered by name.
func (q *Queries) ListTagsForPost(ctx context.Context, postID int64) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at, t.updated_at
		FROM tags t JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ?
		ORDER BY t.name`, postID)
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
