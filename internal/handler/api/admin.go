// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"time"

	"web3folio/internal/model"
	"web3folio/internal/store"
)

// AdminUserResponse extends the public user projection with account
// timestamps for the admin panel.
type AdminUserResponse struct {
	UserResponse
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// AdminUserListResponse is the paginated admin user listing.
type AdminUserListResponse struct {
	Users  []AdminUserResponse `json:"users"`
	Total  int64               `json:"total"`
	Limit  int64               `json:"limit"`
	Offset int64               `json:"offset"`
}

// ListUsers handles GET /api/admin/users. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	limit := parseInt64Param(r.URL.Query().Get("limit"), DefaultPostLimit)
	if limit < 1 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}
	offset := parseInt64Param(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	ctx := r.Context()
	users, err := h.queries.ListUsers(ctx, store.ListUsersParams{Limit: limit, Offset: offset})
	if err != nil {
		slog.Error("failed to list users", "error", err)
		WriteInternalError(w)
		return
	}
	total, err := h.queries.CountUsers(ctx)
	if err != nil {
		slog.Error("failed to count users", "error", err)
		WriteInternalError(w)
		return
	}

	resp := AdminUserListResponse{
		Users:  make([]AdminUserResponse, 0, len(users)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, u := range users {
		item := AdminUserResponse{
			UserResponse: toUserResponse(u),
			CreatedAt:    u.CreatedAt,
		}
		if u.LastLoginAt.Valid {
			t := u.LastLoginAt.Time
			item.LastLoginAt = &t
		}
		resp.Users = append(resp.Users, item)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// EventResponse is the public projection of an audit event.
type EventResponse struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"userId"`
	Metadata  string    `json:"metadata"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
}

func toEventResponse(e model.Event) EventResponse {
	resp := EventResponse{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		Metadata:  e.Metadata,
		IPAddress: e.IPAddress,
		CreatedAt: e.CreatedAt,
	}
	if e.UserID.Valid {
		v := e.UserID.Int64
		resp.UserID = &v
	}
	return resp
}

// AdminEventListResponse is the paginated audit event listing.
type AdminEventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
}

// ListEvents handles GET /api/admin/events. Admin only.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	limit := parseInt64Param(r.URL.Query().Get("limit"), 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := parseInt64Param(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	ctx := r.Context()
	events, err := h.queries.ListRecentEvents(ctx, store.ListRecentEventsParams{Limit: limit, Offset: offset})
	if err != nil {
		slog.Error("failed to list events", "error", err)
		WriteInternalError(w)
		return
	}
	total, err := h.queries.CountEvents(ctx)
	if err != nil {
		slog.Error("failed to count events", "error", err)
		WriteInternalError(w)
		return
	}

	resp := AdminEventListResponse{
		Events: make([]EventResponse, 0, len(events)),
		Total:  total,
	}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	WriteJSON(w, http.StatusOK, resp)
}
