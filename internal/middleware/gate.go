// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"web3folio/internal/model"
	"web3folio/internal/token"
)

// Page prefixes the gate cares about.
const (
	prefixDashboard = "/dashboard"
	prefixAdmin     = "/admin"
	prefixAuth      = "/auth"

	pathSignIn  = "/auth/signin"
	pathSignOut = "/auth/signout"
)

// Decision is the outcome of gating a page request. A zero RedirectTo means
// the request proceeds.
type Decision struct {
	RedirectTo string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.RedirectTo == ""
}

// Decide gates a page path against the session claims. It is a pure function
// of its inputs: presence and role come from the verified token, never from
// storage, so the decision costs no I/O and cannot partially apply.
//
// Claims may be nil (anonymous). An unenriched token counts as signed-in but
// non-admin: its holder authenticated, the role claim just was not captured.
func Decide(path string, claims *token.Claims) Decision {
	signedIn := claims != nil
	admin := signedIn && claims.Role == model.RoleAdmin

	protected := hasPathPrefix(path, prefixDashboard) || hasPathPrefix(path, prefixAdmin)
	if protected && !signedIn {
		return Decision{RedirectTo: pathSignIn + "?callbackUrl=" + url.QueryEscape(path)}
	}

	if hasPathPrefix(path, prefixAdmin) && !admin {
		return Decision{RedirectTo: prefixDashboard}
	}

	// Signed-in users have no business on the sign-in/sign-up pages.
	// Sign-out is the exception: it must stay reachable with a session.
	if hasPathPrefix(path, prefixAuth) && !hasPathPrefix(path, pathSignOut) && signedIn {
		return Decision{RedirectTo: prefixDashboard}
	}

	return Decision{}
}

// hasPathPrefix matches prefix on segment boundaries, so "/dashboard-x"
// does not count as "/dashboard".
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Gate creates middleware that applies Decide to page routes. Mount it on
// the page router only; API routes do their own status-code authorization.
func Gate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := Decide(r.URL.Path, GetClaims(r)); !d.Allowed() {
				http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
