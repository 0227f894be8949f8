// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON API handlers: authentication, wallet
// linking, blog posts and admin listings.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"web3folio/internal/cache"
	"web3folio/internal/config"
	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/service"
	"web3folio/internal/store"
	"web3folio/internal/token"
	"web3folio/internal/version"
)

// maxBodySize caps JSON request bodies at 1 MB.
const maxBodySize = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db              *sql.DB
	queries         *store.Queries
	tokens          *token.Manager
	events          *service.EventService
	loginProtection *middleware.LoginProtection
	postCache       *cache.PostListCache
	cfg             *config.Config
	markdown        goldmark.Markdown
	sanitizer       *bluemonday.Policy
}

// NewHandler creates a new API handler.
func NewHandler(db *sql.DB, tokens *token.Manager, events *service.EventService, lp *middleware.LoginProtection, postCache *cache.PostListCache, cfg *config.Config) *Handler {
	return &Handler{
		db:              db,
		queries:         store.New(db),
		tokens:          tokens,
		events:          events,
		loginProtection: lp,
		postCache:       postCache,
		cfg:             cfg,
		markdown: goldmark.New(
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// secureCookies reports whether session cookies should carry the Secure flag.
func (h *Handler) secureCookies() bool {
	return !h.cfg.IsDevelopment()
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteConflict writes a 400 response for uniqueness conflicts. Conflicts
// share the status of validation failures but keep a distinct code so
// clients can tell them apart.
func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "conflict", message, nil)
}

// WriteValidationError writes a 400 response with per-field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusBadRequest, "validation_error", "Validation failed", fieldErrors)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response. The message
// is generic; details go to the log, never to the client.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal_error", "Something went wrong", nil)
}

// decodeJSON decodes a request body into dst, rejecting unknown fields and
// oversized bodies. Returns false with a response written on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid request body", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		WriteBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// requireSession returns the verified session claims or writes a 401.
func requireSession(w http.ResponseWriter, r *http.Request) *token.Claims {
	claims := middleware.GetClaims(r)
	if claims == nil {
		WriteUnauthorized(w, "You must be signed in")
		return nil
	}
	return claims
}

// requireAdmin returns the claims when the caller is a signed-in admin, or
// writes 401/403.
func requireAdmin(w http.ResponseWriter, r *http.Request) *token.Claims {
	claims := requireSession(w, r)
	if claims == nil {
		return nil
	}
	if claims.Role != model.RoleAdmin {
		WriteForbidden(w, "Admin access required")
		return nil
	}
	return claims
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: version.Version,
	})
}
