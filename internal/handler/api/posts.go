// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/store"
	"web3folio/internal/util"
)

// Pagination bounds for the post listing.
const (
	DefaultPostLimit = 10
	MaxPostLimit     = 50
)

// PostResponse is the public projection of a blog post, with the author
// and category attached.
type PostResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Excerpt     *string           `json:"excerpt"`
	Content     string            `json:"content"`
	ContentHTML string            `json:"contentHtml,omitempty"`
	CoverImage  *string           `json:"coverImage"`
	Published   bool              `json:"published"`
	PublishedAt *time.Time        `json:"publishedAt"`
	AuthorID    int64             `json:"authorId"`
	Author      PostAuthor        `json:"author"`
	CategoryID  *int64            `json:"categoryId"`
	Category    *CategoryResponse `json:"category"`
	Tags        []TagResponse     `json:"tags"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PostAuthor is the author projection embedded in post responses.
type PostAuthor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TagResponse is the public projection of a tag.
type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toTagResponses(tags []model.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out
}

func toPostResponse(p model.BlogPost, tags []model.Tag) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Published: p.Published,
		AuthorID:  p.AuthorID,
		Tags:      toTagResponses(tags),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Excerpt.Valid {
		v := p.Excerpt.String
		resp.Excerpt = &v
	}
	if p.CoverImage.Valid {
		v := p.CoverImage.String
		resp.CoverImage = &v
	}
	if p.PublishedAt.Valid {
		t := p.PublishedAt.Time
		resp.PublishedAt = &t
	}
	if p.CategoryID.Valid {
		v := p.CategoryID.Int64
		resp.CategoryID = &v
	}
	return resp
}

// hydratePost attaches the author and category rows to a post projection.
func (h *Handler) hydratePost(ctx context.Context, p model.BlogPost, tags []model.Tag) (PostResponse, error) {
	resp := toPostResponse(p, tags)

	author, err := h.queries.GetUserByID(ctx, p.AuthorID)
	if err != nil {
		return resp, err
	}
	resp.Author = PostAuthor{ID: author.ID, Username: author.Username, Email: author.Email}

	if p.CategoryID.Valid {
		category, err := h.queries.GetCategoryByID(ctx, p.CategoryID.Int64)
		if err != nil {
			return resp, err
		}
		c := toCategoryResponse(category)
		resp.Category = &c
	}
	return resp, nil
}

// CreatePostRequest is the post creation request body.
type CreatePostRequest struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	CoverImage string   `json:"coverImage"`
	Published  bool     `json:"published"`
	CategoryID *int64   `json:"categoryId"`
	Tags       []string `json:"tags"`
}

// CreatePost handles POST /api/blog/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	claims := requireSession(w, r)
	if claims == nil {
		return
	}

	var req CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Slug = strings.TrimSpace(req.Slug)

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if strings.TrimSpace(req.Content) == "" {
		fieldErrors["content"] = "Content is required"
	}
	if req.Slug == "" && req.Title != "" {
		req.Slug = util.Slugify(req.Title)
	}
	if req.Slug == "" || !util.IsValidSlug(req.Slug) {
		fieldErrors["slug"] = "Slug must contain only lowercase letters, numbers and hyphens"
	}
	if len(fieldErrors) > 0 {
		WriteValidationError(w, fieldErrors)
		return
	}

	ctx := r.Context()

	if req.CategoryID != nil {
		if _, err := h.queries.GetCategoryByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteValidationError(w, map[string]string{"categoryId": "Category does not exist"})
				return
			}
			slog.Error("failed to check category", "error", err)
			WriteInternalError(w)
			return
		}
	}

	exists, err := h.queries.PostSlugExists(ctx, req.Slug)
	if err != nil {
		slog.Error("failed to check post slug", "error", err)
		WriteInternalError(w)
		return
	}
	if exists != 0 {
		WriteConflict(w, "A post with this slug already exists")
		return
	}

	now := time.Now()
	params := store.CreatePostParams{
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   req.Content,
		Published: req.Published,
		AuthorID:  claims.UserID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Excerpt != "" {
		params.Excerpt = sql.NullString{String: req.Excerpt, Valid: true}
	}
	if req.CoverImage != "" {
		params.CoverImage = sql.NullString{String: req.CoverImage, Valid: true}
	}
	// publishedAt is present exactly when the post is published
	if req.Published {
		params.PublishedAt = sql.NullTime{Time: now, Valid: true}
	}
	if req.CategoryID != nil {
		params.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		WriteInternalError(w)
		return
	}
	defer func() { _ = tx.Rollback() }()

	qtx := h.queries.WithTx(tx)

	post, err := qtx.CreatePost(ctx, params)
	if err != nil {
		// Concurrent creators of the same slug race past the pre-check; the
		// unique index settles it.
		if store.IsUniqueViolation(err) {
			slog.Warn("post slug rejected by unique index", "error", err, "slug", req.Slug)
			WriteConflict(w, "A post with this slug already exists")
			return
		}
		slog.Error("failed to create post", "error", err, "slug", req.Slug)
		WriteInternalError(w)
		return
	}

	tags := make([]model.Tag, 0, len(req.Tags))
	seen := make(map[string]bool)
	for _, name := range req.Tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		slug := util.TagSlug(name)
		if seen[slug] {
			continue
		}
		seen[slug] = true

		tag, err := qtx.UpsertTag(ctx, store.UpsertTagParams{
			Name:      name,
			Slug:      slug,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			slog.Error("failed to upsert tag", "error", err, "tag", name)
			WriteInternalError(w)
			return
		}
		if err := qtx.AddPostTag(ctx, store.AddPostTagParams{PostID: post.ID, TagID: tag.ID}); err != nil {
			slog.Error("failed to attach tag", "error", err, "tag", name)
			WriteInternalError(w)
			return
		}
		tags = append(tags, tag)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit post", "error", err)
		WriteInternalError(w)
		return
	}

	h.postCache.Invalidate(ctx)

	userID := claims.UserID()
	_ = h.events.LogPostEvent(ctx, model.EventLevelInfo, "Blog post created", &userID,
		clientIP(r), map[string]any{"post_id": post.ID, "slug": post.Slug, "published": post.Published})

	resp, err := h.hydratePost(ctx, post, tags)
	if err != nil {
		slog.Error("failed to load post relations", "error", err, "post_id", post.ID)
		WriteInternalError(w)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// PostListResponse is the paginated post listing.
type PostListResponse struct {
	Posts  []PostResponse `json:"posts"`
	Total  int64          `json:"total"`
	Limit  int64          `json:"limit"`
	Offset int64          `json:"offset"`
}

// ListPosts handles GET /api/blog/posts. The published, authorId, categoryId
// and tag filters are independent and combine with AND; with no published
// parameter the listing covers drafts and published posts alike.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	limit := parseInt64Param(query.Get("limit"), DefaultPostLimit)
	if limit < 1 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}
	offset := parseInt64Param(query.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	published := strings.TrimSpace(query.Get("published"))
	authorID := parseInt64Param(query.Get("authorId"), 0)
	categoryID := parseInt64Param(query.Get("categoryId"), 0)
	tagSlug := strings.TrimSpace(query.Get("tag"))

	cacheKey := h.postCache.Key(published, authorID, categoryID, tagSlug, limit, offset)
	if body := h.postCache.Get(ctx, cacheKey); body != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(body)
		return
	}

	var filter store.PostFilter
	switch published {
	case "true":
		filter.Published = sql.NullBool{Bool: true, Valid: true}
	case "false":
		filter.Published = sql.NullBool{Bool: false, Valid: true}
	}
	if authorID > 0 {
		filter.AuthorID = sql.NullInt64{Int64: authorID, Valid: true}
	}
	if categoryID > 0 {
		filter.CategoryID = sql.NullInt64{Int64: categoryID, Valid: true}
	}
	if tagSlug != "" {
		filter.TagSlug = sql.NullString{String: tagSlug, Valid: true}
	}

	posts, err := h.queries.ListPosts(ctx, store.ListPostsParams{
		Filter: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("failed to list posts", "error", err)
		WriteInternalError(w)
		return
	}

	total, err := h.queries.CountPosts(ctx, filter)
	if err != nil {
		slog.Error("failed to count posts", "error", err)
		WriteInternalError(w)
		return
	}

	resp := PostListResponse{
		Posts:  make([]PostResponse, 0, len(posts)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, p := range posts {
		tags, err := h.queries.ListTagsForPost(ctx, p.ID)
		if err != nil {
			slog.Error("failed to load post tags", "error", err, "post_id", p.ID)
			WriteInternalError(w)
			return
		}
		item, err := h.hydratePost(ctx, p, tags)
		if err != nil {
			slog.Error("failed to load post relations", "error", err, "post_id", p.ID)
			WriteInternalError(w)
			return
		}
		resp.Posts = append(resp.Posts, item)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal post list", "error", err)
		WriteInternalError(w)
		return
	}
	h.postCache.Set(ctx, cacheKey, body)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// GetPost handles GET /api/blog/posts/{slug}. Drafts are visible only to
// their author and admins. The response includes the rendered, sanitized
// HTML alongside the raw markdown.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	ctx := r.Context()

	post, err := h.queries.GetPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Post not found")
			return
		}
		slog.Error("failed to load post", "error", err, "slug", slug)
		WriteInternalError(w)
		return
	}

	if !post.Published && !h.canViewDraft(r, post.AuthorID) {
		WriteNotFound(w, "Post not found")
		return
	}

	tags, err := h.queries.ListTagsForPost(ctx, post.ID)
	if err != nil {
		slog.Error("failed to load post tags", "error", err, "post_id", post.ID)
		WriteInternalError(w)
		return
	}

	resp, err := h.hydratePost(ctx, post, tags)
	if err != nil {
		slog.Error("failed to load post relations", "error", err, "post_id", post.ID)
		WriteInternalError(w)
		return
	}
	resp.ContentHTML = h.renderMarkdown(post.Content)
	WriteJSON(w, http.StatusOK, resp)
}

// canViewDraft reports whether the caller may see an unpublished post.
func (h *Handler) canViewDraft(r *http.Request, authorID int64) bool {
	claims := middleware.GetClaims(r)
	if claims == nil {
		return false
	}
	return claims.Role == model.RoleAdmin || claims.UserID() == authorID
}

// renderMarkdown converts markdown to sanitized HTML.
func (h *Handler) renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(source), &buf); err != nil {
		slog.Warn("markdown rendering failed", "error", err)
		return ""
	}
	return h.sanitizer.Sanitize(buf.String())
}

// parseInt64Param parses an optional integer query parameter.
func parseInt64Param(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
