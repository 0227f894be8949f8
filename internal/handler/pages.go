// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTML page handlers. The pages are thin
// server-rendered shells over the JSON API; the route gate decides who can
// reach them.
package handler

import (
	"database/sql"
	"html/template"
	"log/slog"
	"net/http"

	"web3folio/internal/config"
	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/store"
	"web3folio/internal/token"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>{{.Title}} - web3folio</title>
</head>
<body>
	<header>
		<nav>
			<a href="/">Home</a>
			{{if .Username}}
			<a href="/dashboard">Dashboard</a>
			{{if .IsAdmin}}<a href="/admin">Admin</a>{{end}}
			<a href="/auth/signout">Sign out ({{.Username}})</a>
			{{else}}
			<a href="/auth/signin">Sign in</a>
			<a href="/auth/signup">Sign up</a>
			{{end}}
		</nav>
	</header>
	<main>
		<h1>{{.Title}}</h1>
		<p>{{.Body}}</p>
		{{if .Wallet}}<p>Linked wallet: <code>{{.Wallet}}</code></p>{{end}}
		{{if .Posts}}
		<h2>Your posts</h2>
		<ul>
		{{range .Posts}}
			<li><a href="/api/blog/posts/{{.Slug}}">{{.Title}}</a>{{if not .Published}} (draft){{end}}</li>
		{{end}}
		</ul>
		{{end}}
		{{if .Totals}}
		<ul>
		{{range $name, $count := .Totals}}
			<li>{{$name}}: {{$count}}</li>
		{{end}}
		</ul>
		{{end}}
	</main>
</body>
</html>
`))

// pageData is the payload for the shared page template.
type pageData struct {
	Title    string
	Body     string
	Username string
	IsAdmin  bool
	Wallet   string
	Posts    []model.BlogPost
	Totals   map[string]int64
}

// Pages serves the HTML page routes.
type Pages struct {
	queries *store.Queries
	cfg     *config.Config
}

// NewPages creates the page handler set.
func NewPages(db *sql.DB, cfg *config.Config) *Pages {
	return &Pages{queries: store.New(db), cfg: cfg}
}

// render writes a page, filling session fields from the request claims.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, data pageData) {
	if claims := middleware.GetClaims(r); claims != nil {
		data.Username = claims.Username
		if data.Username == "" {
			data.Username = claims.Email
		}
		data.IsAdmin = claims.Role == model.RoleAdmin
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render page", "error", err, "page", data.Title)
	}
}

// Home handles GET /.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, pageData{
		Title: "Home",
		Body:  "Web3 portfolio and blog.",
	})
}

// Dashboard handles GET /dashboard: the caller's posts (drafts included) and
// wallet state. The route gate guarantees a session.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title: "Dashboard",
		Body:  "Manage your posts and wallet.",
	}

	claims := middleware.GetClaims(r)
	if claims != nil {
		ctx := r.Context()

		// Wallet state is read from storage, not the token, so a link made
		// after sign-in shows up here immediately.
		if user, err := p.queries.GetUserByID(ctx, claims.UserID()); err == nil && user.WalletAddress.Valid {
			data.Wallet = user.WalletAddress.String
		}

		posts, err := p.queries.ListPosts(ctx, store.ListPostsParams{
			Filter: store.PostFilter{AuthorID: sql.NullInt64{Int64: claims.UserID(), Valid: true}},
			Limit:  50,
		})
		if err != nil {
			slog.Error("failed to list dashboard posts", "error", err, "user_id", claims.UserID())
		}
		data.Posts = posts
	}

	p.render(w, r, data)
}

// Admin handles GET /admin: account, post and event totals. The route gate
// guarantees an admin session.
func (p *Pages) Admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	totals := make(map[string]int64)

	if n, err := p.queries.CountUsers(ctx); err == nil {
		totals["Users"] = n
	}
	if n, err := p.queries.CountPosts(ctx, store.PostFilter{}); err == nil {
		totals["Posts"] = n
	}
	if n, err := p.queries.CountEvents(ctx); err == nil {
		totals["Events"] = n
	}

	p.render(w, r, pageData{
		Title:  "Admin",
		Body:   "User accounts and audit log.",
		Totals: totals,
	})
}

// SignIn handles GET /auth/signin.
func (p *Pages) SignIn(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, pageData{
		Title: "Sign in",
		Body:  "Sign in with your email and password.",
	})
}

// SignUp handles GET /auth/signup.
func (p *Pages) SignUp(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, pageData{
		Title: "Sign up",
		Body:  "Create an account.",
	})
}

// SignOut handles GET /auth/signout: clears the session cookie and returns
// to the home page.
func (p *Pages) SignOut(w http.ResponseWriter, r *http.Request) {
	token.ClearCookie(w, !p.cfg.IsDevelopment())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
