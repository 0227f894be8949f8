// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"web3folio/internal/model"
	"web3folio/internal/store"
	"web3folio/internal/util"
)

// ListTags handles GET /api/blog/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.queries.ListTags(r.Context())
	if err != nil {
		slog.Error("failed to list tags", "error", err)
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, map[string][]TagResponse{"tags": toTagResponses(tags)})
}

// CategoryResponse is the public projection of a category.
type CategoryResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
}

func toCategoryResponse(c model.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:   c.ID,
		Name: c.Name,
		Slug: c.Slug,
	}
	if c.Description.Valid {
		v := c.Description.String
		resp.Description = &v
	}
	return resp
}

// ListCategories handles GET /api/blog/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListCategories(r.Context())
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		WriteInternalError(w)
		return
	}

	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	WriteJSON(w, http.StatusOK, map[string][]CategoryResponse{"categories": out})
}

// CreateCategoryRequest is the category creation request body.
type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategory handles POST /api/blog/categories. Admin only.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	claims := requireAdmin(w, r)
	if claims == nil {
		return
	}

	var req CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	if req.Name == "" {
		WriteValidationError(w, map[string]string{"name": "Name is required"})
		return
	}

	now := time.Now()
	params := store.CreateCategoryParams{
		Name:      req.Name,
		Slug:      util.Slugify(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != "" {
		params.Description = sql.NullString{String: req.Description, Valid: true}
	}

	category, err := h.queries.CreateCategory(r.Context(), params)
	if err != nil {
		if store.IsUniqueViolation(err) {
			slog.Warn("category rejected by unique index", "error", err, "name", req.Name)
			WriteConflict(w, "A category with this name already exists")
			return
		}
		slog.Error("failed to create category", "error", err, "name", req.Name)
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusCreated, toCategoryResponse(category))
}
