// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"web3folio/internal/model"
	"web3folio/internal/token"
)

func claimsWithRole(role string) *token.Claims {
	return &token.Claims{Role: role, Username: "alice"}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		claims   *token.Claims
		redirect string
	}{
		{
			name:     "anonymous on dashboard redirects to sign-in with callback",
			path:     "/dashboard",
			claims:   nil,
			redirect: "/auth/signin?callbackUrl=%2Fdashboard",
		},
		{
			name:     "anonymous on nested dashboard keeps full path in callback",
			path:     "/dashboard/settings",
			claims:   nil,
			redirect: "/auth/signin?callbackUrl=%2Fdashboard%2Fsettings",
		},
		{
			name:     "anonymous on admin redirects to sign-in",
			path:     "/admin",
			claims:   nil,
			redirect: "/auth/signin?callbackUrl=%2Fadmin",
		},
		{
			name:     "user on admin redirects to dashboard",
			path:     "/admin",
			claims:   claimsWithRole(model.RoleUser),
			redirect: "/dashboard",
		},
		{
			name:   "admin on admin allowed",
			path:   "/admin",
			claims: claimsWithRole(model.RoleAdmin),
		},
		{
			name:   "user on dashboard allowed",
			path:   "/dashboard",
			claims: claimsWithRole(model.RoleUser),
		},
		{
			name:     "unenriched token on admin is non-admin",
			path:     "/admin",
			claims:   &token.Claims{},
			redirect: "/dashboard",
		},
		{
			name:   "unenriched token on dashboard is signed in",
			path:   "/dashboard",
			claims: &token.Claims{},
		},
		{
			name:     "signed-in on sign-in page redirects to dashboard",
			path:     "/auth/signin",
			claims:   claimsWithRole(model.RoleUser),
			redirect: "/dashboard",
		},
		{
			name:     "signed-in on sign-up page redirects to dashboard",
			path:     "/auth/signup",
			claims:   claimsWithRole(model.RoleAdmin),
			redirect: "/dashboard",
		},
		{
			name:   "signed-in on sign-out page allowed",
			path:   "/auth/signout",
			claims: claimsWithRole(model.RoleUser),
		},
		{
			name:   "anonymous on sign-in page allowed",
			path:   "/auth/signin",
			claims: nil,
		},
		{
			name:   "prefix match stops at segment boundary",
			path:   "/dashboard-public",
			claims: nil,
		},
		{
			name:   "home page always allowed",
			path:   "/",
			claims: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.path, tt.claims)
			assert.Equal(t, tt.redirect, d.RedirectTo)
			assert.Equal(t, tt.redirect == "", d.Allowed())
		})
	}
}

func TestGateMiddlewareRedirects(t *testing.T) {
	handler := Gate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin?callbackUrl=%2Fdashboard", rec.Header().Get("Location"))
}

func TestGateMiddlewarePassesWithClaims(t *testing.T) {
	handler := Gate()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	ctx := context.WithValue(req.Context(), ContextKeyClaims, claimsWithRole(model.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}
