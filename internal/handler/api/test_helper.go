// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"web3folio/internal/auth"
	"web3folio/internal/cache"
	"web3folio/internal/config"
	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/service"
	"web3folio/internal/store"
	"web3folio/internal/token"
)

const (
	testAuthSecret = "api-test-secret-0123456789abcdef"
	testPassword   = "Sup3rSecret1"
)

// testSetup creates a migrated temp database and a fully wired API handler.
func testSetup(t *testing.T) *Handler {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewHandler(
		db,
		token.NewManager(testAuthSecret, 24*time.Hour),
		service.NewEventService(db),
		middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig()),
		cache.NewPostListCache(cache.NewSimpleMemoryCache(time.Minute)),
		&config.Config{Env: "development"},
	)
}

// createTestUser inserts a user whose password is testPassword.
func createTestUser(t *testing.T, h *Handler, username, email, role string) model.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	user, err := h.queries.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// claimsFor builds verified-looking session claims for a user, as the
// session middleware would attach them.
func claimsFor(user model.User) *token.Claims {
	claims := &token.Claims{
		Email:    user.Email,
		Name:     user.Username,
		Role:     user.Role,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if user.WalletAddress.Valid {
		addr := user.WalletAddress.String
		claims.WalletAddress = &addr
	}
	return claims
}

// testRequest builds a request with an optional JSON body and optional
// session claims attached to the context.
func testRequest(t *testing.T, method, target string, body any, claims *token.Claims) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	r := httptest.NewRequest(method, target, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyClaims, claims))
	}
	return r
}

// decodeResponse unmarshals the recorded body into dst.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

// decodeError unmarshals an error response body.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	decodeResponse(t, w, &resp)
	return resp.Error
}

// sessionCookie returns the session cookie set on the response, or nil.
func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == token.CookieName {
			return c
		}
	}
	return nil
}
