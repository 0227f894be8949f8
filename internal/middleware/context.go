// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session handling,
// route authorization and request context plumbing.
package middleware

import (
	"context"
	"net/http"
	"time"

	"web3folio/internal/token"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped data.
const (
	ContextKeyClaims      ContextKey = "session_claims"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Session creates middleware that verifies the session cookie and attaches
// its claims to the request context. The token alone carries the session:
// no storage is touched here, invalid or expired cookies are cleared and
// the request continues anonymously.
//
// Tokens past half their lifetime are re-signed on the way through, so an
// active session slides forward instead of expiring mid-use.
func Session(tm *token.Manager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := token.FromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Parse(raw)
			if err != nil {
				token.ClearCookie(w, secure)
				next.ServeHTTP(w, r)
				return
			}

			if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < tm.Lifetime()/2 {
				if refreshed, err := tm.Refresh(claims); err == nil {
					token.WriteCookie(w, refreshed, tm.Lifetime(), secure)
				}
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the verified session claims from the request context.
// Returns nil for anonymous requests.
func GetClaims(r *http.Request) *token.Claims {
	claims, ok := r.Context().Value(ContextKeyClaims).(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if claims := GetClaims(r); claims != nil {
		return claims.UserID()
	}
	return 0
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or
// nil if not found. Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if claims := GetClaims(r); claims != nil {
		id := claims.UserID()
		return &id
	}
	return nil
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
