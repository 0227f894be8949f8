// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// BlogPost represents a blog entry. PublishedAt is set iff the post was
// created with Published=true; drafts carry a NULL timestamp.
type BlogPost struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Excerpt     sql.NullString `json:"excerpt"`
	Content     string         `json:"content"`
	CoverImage  sql.NullString `json:"coverImage"`
	Published   bool           `json:"published"`
	PublishedAt sql.NullTime   `json:"publishedAt"`
	AuthorID    int64          `json:"authorId"`
	CategoryID  sql.NullInt64  `json:"categoryId"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Tag is a label shared across posts. Slug is the identity used for upserts.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups posts many-to-one. Lifetime independent of any post.
type Category struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description sql.NullString `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
