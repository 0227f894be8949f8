// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/token"
)

// createPost creates a post through the API and returns the response.
func createPost(t *testing.T, h *Handler, claims *token.Claims, req CreatePostRequest) PostResponse {
	t.Helper()

	w := httptest.NewRecorder()
	h.CreatePost(w, testRequest(t, http.MethodPost, "/api/blog/posts", req, claims))
	if w.Code != http.StatusOK {
		t.Fatalf("failed to create post: %d %s", w.Code, w.Body.String())
	}

	var resp PostResponse
	decodeResponse(t, w, &resp)
	return resp
}

// getPost fetches a post by slug with the chi route parameter attached.
func getPost(h *Handler, slug string, claims *token.Claims) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/api/blog/posts/"+slug, nil)
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyClaims, claims))
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	h.GetPost(w, r)
	return w
}

func TestCreatePostDefaults(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	post := createPost(t, h, claimsFor(user), CreatePostRequest{
		Title:   "Why Rollups Matter",
		Content: "Rollups move computation off-chain.",
	})

	if post.Slug != "why-rollups-matter" {
		t.Errorf("expected slug derived from title, got %q", post.Slug)
	}
	if post.Published {
		t.Error("expected post to default to draft")
	}
	if post.PublishedAt != nil {
		t.Error("expected no publishedAt on a draft")
	}
	if post.AuthorID != user.ID {
		t.Errorf("expected author %d, got %d", user.ID, post.AuthorID)
	}
	if post.Author.ID != user.ID || post.Author.Username != "alice" || post.Author.Email != "alice@example.com" {
		t.Errorf("expected the author embedded in the response, got %+v", post.Author)
	}
	if post.Category != nil {
		t.Errorf("expected no category, got %+v", post.Category)
	}
	if len(post.Tags) != 0 {
		t.Errorf("expected no tags, got %v", post.Tags)
	}
}

func TestCreatePostPublishedStampsTime(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	post := createPost(t, h, claimsFor(user), CreatePostRequest{
		Title:     "Launch Day",
		Content:   "We are live.",
		Published: true,
	})

	if !post.Published {
		t.Error("expected post to be published")
	}
	if post.PublishedAt == nil {
		t.Error("expected publishedAt to be set on a published post")
	}
}

func TestCreatePostValidation(t *testing.T) {
	tests := []struct {
		name      string
		req       CreatePostRequest
		wantField string
	}{
		{"missing title", CreatePostRequest{Content: "body"}, "title"},
		{"missing content", CreatePostRequest{Title: "Hello"}, "content"},
		{"invalid slug", CreatePostRequest{Title: "Hello", Content: "body", Slug: "Not A Slug!"}, "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testSetup(t)
			user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

			w := httptest.NewRecorder()
			h.CreatePost(w, testRequest(t, http.MethodPost, "/api/blog/posts", tt.req, claimsFor(user)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			detail := decodeError(t, w)
			if _, ok := detail.Details[tt.wantField]; !ok {
				t.Errorf("expected a field error for %q, got %v", tt.wantField, detail.Details)
			}
		})
	}
}

func TestCreatePostRequiresSession(t *testing.T) {
	h := testSetup(t)

	w := httptest.NewRecorder()
	h.CreatePost(w, testRequest(t, http.MethodPost, "/api/blog/posts",
		CreatePostRequest{Title: "Hello", Content: "body"}, nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestCreatePostSlugConflict(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	createPost(t, h, claimsFor(user), CreatePostRequest{Title: "Hello World", Content: "first"})

	w := httptest.NewRecorder()
	h.CreatePost(w, testRequest(t, http.MethodPost, "/api/blog/posts",
		CreatePostRequest{Title: "Different Title", Slug: "hello-world", Content: "second"}, claimsFor(user)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	detail := decodeError(t, w)
	if detail.Code != "conflict" {
		t.Errorf("expected code conflict, got %q", detail.Code)
	}
	if detail.Message != "A post with this slug already exists" {
		t.Errorf("unexpected message %q", detail.Message)
	}
}

func TestCreatePostTagsConverge(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	post := createPost(t, h, claimsFor(user), CreatePostRequest{
		Title:   "Tagging",
		Content: "body",
		Tags:    []string{"Smart Contracts", "smart contracts", "  SMART CONTRACTS  ", "DeFi"},
	})

	if len(post.Tags) != 2 {
		t.Fatalf("expected variants to converge to 2 tags, got %d: %v", len(post.Tags), post.Tags)
	}
	slugs := map[string]bool{}
	for _, tag := range post.Tags {
		slugs[tag.Slug] = true
	}
	if !slugs["smart-contracts"] || !slugs["defi"] {
		t.Errorf("unexpected tag slugs %v", slugs)
	}

	// A second post reuses the existing tag rows instead of duplicating them.
	createPost(t, h, claimsFor(user), CreatePostRequest{
		Title:   "Tagging Again",
		Content: "body",
		Tags:    []string{"smart contracts"},
	})

	total, err := h.queries.CountTags(context.Background())
	if err != nil {
		t.Fatalf("failed to count tags: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 tag rows, got %d", total)
	}
}

func TestCreatePostCategory(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	admin := createTestUser(t, h, "root", "root@example.com", model.RoleAdmin)

	w := httptest.NewRecorder()
	h.CreateCategory(w, testRequest(t, http.MethodPost, "/api/blog/categories",
		CreateCategoryRequest{Name: "Tutorials"}, claimsFor(admin)))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to create category: %d", w.Code)
	}
	var category CategoryResponse
	decodeResponse(t, w, &category)

	post := createPost(t, h, claimsFor(user), CreatePostRequest{
		Title: "Categorized", Content: "body", Published: true, CategoryID: &category.ID,
	})
	if post.CategoryID == nil || *post.CategoryID != category.ID {
		t.Errorf("expected category %d on the post, got %v", category.ID, post.CategoryID)
	}
	if post.Category == nil || post.Category.ID != category.ID || post.Category.Name != "Tutorials" {
		t.Errorf("expected the category embedded in the response, got %+v", post.Category)
	}

	// Listing filtered by category finds it.
	w = httptest.NewRecorder()
	h.ListPosts(w, testRequest(t, http.MethodGet,
		fmt.Sprintf("/api/blog/posts?categoryId=%d", category.ID), nil, nil))
	var listed PostListResponse
	decodeResponse(t, w, &listed)
	if listed.Total != 1 {
		t.Errorf("expected 1 post in the category, got %d", listed.Total)
	}

	// An unknown category matches nothing rather than being ignored.
	w = httptest.NewRecorder()
	h.ListPosts(w, testRequest(t, http.MethodGet, "/api/blog/posts?categoryId=999", nil, nil))
	decodeResponse(t, w, &listed)
	if listed.Total != 0 {
		t.Errorf("expected no posts in an unknown category, got %d", listed.Total)
	}
}

func TestCreatePostUnknownCategory(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	missing := int64(999)
	w := httptest.NewRecorder()
	h.CreatePost(w, testRequest(t, http.MethodPost, "/api/blog/posts",
		CreatePostRequest{Title: "Orphan", Content: "body", CategoryID: &missing}, claimsFor(user)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	detail := decodeError(t, w)
	if _, ok := detail.Details["categoryId"]; !ok {
		t.Errorf("expected a categoryId field error, got %v", detail.Details)
	}
}

func TestListPostsPublishedFilter(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	createPost(t, h, claimsFor(user), CreatePostRequest{Title: "Draft Post", Content: "body"})
	createPost(t, h, claimsFor(user), CreatePostRequest{Title: "Public Post", Content: "body", Published: true})

	tests := []struct {
		name      string
		target    string
		wantSlugs []string
	}{
		{"no filter lists everything", "/api/blog/posts", []string{"draft-post", "public-post"}},
		{"published only", "/api/blog/posts?published=true", []string{"public-post"}},
		{"drafts only", "/api/blog/posts?published=false", []string{"draft-post"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ListPosts(w, testRequest(t, http.MethodGet, tt.target, nil, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			var resp PostListResponse
			decodeResponse(t, w, &resp)
			if resp.Total != int64(len(tt.wantSlugs)) {
				t.Errorf("expected total %d, got %d", len(tt.wantSlugs), resp.Total)
			}
			got := map[string]bool{}
			for _, p := range resp.Posts {
				got[p.Slug] = true
			}
			for _, slug := range tt.wantSlugs {
				if !got[slug] {
					t.Errorf("expected %q in the listing, got %v", slug, got)
				}
			}
		})
	}
}

func TestListPostsAuthorFilter(t *testing.T) {
	h := testSetup(t)
	alice := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	bob := createTestUser(t, h, "bob", "bob@example.com", model.RoleUser)

	createPost(t, h, claimsFor(alice), CreatePostRequest{Title: "By Alice", Content: "body", Published: true})
	createPost(t, h, claimsFor(bob), CreatePostRequest{Title: "By Bob", Content: "body", Published: true})

	w := httptest.NewRecorder()
	h.ListPosts(w, testRequest(t, http.MethodGet,
		fmt.Sprintf("/api/blog/posts?authorId=%d", bob.ID), nil, nil))

	var resp PostListResponse
	decodeResponse(t, w, &resp)
	if resp.Total != 1 || len(resp.Posts) != 1 {
		t.Fatalf("expected exactly one post by bob, got total=%d len=%d", resp.Total, len(resp.Posts))
	}
	if resp.Posts[0].Slug != "by-bob" || resp.Posts[0].Author.Username != "bob" {
		t.Errorf("expected bob's post, got %+v", resp.Posts[0])
	}

	// Filters combine: bob has no drafts.
	w = httptest.NewRecorder()
	h.ListPosts(w, testRequest(t, http.MethodGet,
		fmt.Sprintf("/api/blog/posts?authorId=%d&published=false", bob.ID), nil, nil))
	decodeResponse(t, w, &resp)
	if resp.Total != 0 {
		t.Errorf("expected no drafts by bob, got %d", resp.Total)
	}
}

func TestListPostsPagination(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	for i := 0; i < 7; i++ {
		createPost(t, h, claimsFor(user), CreatePostRequest{
			Title:     fmt.Sprintf("Post %d", i),
			Content:   "body",
			Published: true,
		})
	}

	tests := []struct {
		query     string
		wantLen   int
		wantLimit int64
	}{
		{"limit=3", 3, 3},
		{"limit=3&offset=6", 1, 3},
		{"limit=3&offset=10", 0, 3},
		{"limit=0", 7, DefaultPostLimit},
		{"limit=999", 7, MaxPostLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ListPosts(w, testRequest(t, http.MethodGet, "/api/blog/posts?"+tt.query, nil, nil))

			var resp PostListResponse
			decodeResponse(t, w, &resp)
			if len(resp.Posts) != tt.wantLen {
				t.Errorf("expected %d posts, got %d", tt.wantLen, len(resp.Posts))
			}
			if resp.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, resp.Limit)
			}
			// The total never depends on paging.
			if resp.Total != 7 {
				t.Errorf("expected total 7, got %d", resp.Total)
			}
		})
	}
}

func TestListPostsTagFilter(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	createPost(t, h, claimsFor(user), CreatePostRequest{
		Title: "DeFi Post", Content: "body", Published: true, Tags: []string{"DeFi"},
	})
	createPost(t, h, claimsFor(user), CreatePostRequest{
		Title: "NFT Post", Content: "body", Published: true, Tags: []string{"NFT"},
	})

	w := httptest.NewRecorder()
	h.ListPosts(w, testRequest(t, http.MethodGet, "/api/blog/posts?tag=defi", nil, nil))

	var resp PostListResponse
	decodeResponse(t, w, &resp)
	if resp.Total != 1 || len(resp.Posts) != 1 {
		t.Fatalf("expected exactly one tagged post, got total=%d len=%d", resp.Total, len(resp.Posts))
	}
	if resp.Posts[0].Slug != "defi-post" {
		t.Errorf("expected defi-post, got %q", resp.Posts[0].Slug)
	}
}

func TestListPostsCached(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	createPost(t, h, claimsFor(user), CreatePostRequest{Title: "Cached", Content: "body", Published: true})

	first := httptest.NewRecorder()
	h.ListPosts(first, testRequest(t, http.MethodGet, "/api/blog/posts", nil, nil))
	if first.Header().Get("X-Cache") != "" {
		t.Error("expected the first listing to miss the cache")
	}

	second := httptest.NewRecorder()
	h.ListPosts(second, testRequest(t, http.MethodGet, "/api/blog/posts", nil, nil))
	if second.Header().Get("X-Cache") != "HIT" {
		t.Error("expected the second listing to hit the cache")
	}
	if first.Body.String() != second.Body.String() {
		t.Error("expected identical bodies from cache")
	}

	// Creating a post invalidates the listing cache.
	createPost(t, h, claimsFor(user), CreatePostRequest{Title: "Newer", Content: "body", Published: true})

	third := httptest.NewRecorder()
	h.ListPosts(third, testRequest(t, http.MethodGet, "/api/blog/posts", nil, nil))
	if third.Header().Get("X-Cache") == "HIT" {
		t.Error("expected the cache to be invalidated after create")
	}
	var resp PostListResponse
	decodeResponse(t, third, &resp)
	if resp.Total != 2 {
		t.Errorf("expected total 2 after invalidation, got %d", resp.Total)
	}
}

func TestGetPostRendersMarkdown(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	createPost(t, h, claimsFor(user), CreatePostRequest{
		Title:     "Markdown",
		Content:   "# Heading\n\nSome **bold** text.\n\n<script>alert(1)</script>",
		Published: true,
	})

	w := getPost(h, "markdown", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp PostResponse
	decodeResponse(t, w, &resp)
	if !strings.Contains(resp.ContentHTML, "<strong>bold</strong>") {
		t.Errorf("expected rendered markdown, got %q", resp.ContentHTML)
	}
	if strings.Contains(resp.ContentHTML, "<script>") {
		t.Errorf("expected scripts to be sanitized, got %q", resp.ContentHTML)
	}
}

func TestGetPostNotFound(t *testing.T) {
	h := testSetup(t)

	w := getPost(h, "nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestGetDraftVisibility(t *testing.T) {
	h := testSetup(t)
	author := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	other := createTestUser(t, h, "bob", "bob@example.com", model.RoleUser)
	admin := createTestUser(t, h, "root", "root@example.com", model.RoleAdmin)

	createPost(t, h, claimsFor(author), CreatePostRequest{Title: "Secret Draft", Content: "wip"})

	tests := []struct {
		name     string
		claims   *token.Claims
		wantCode int
	}{
		{"anonymous", nil, http.StatusNotFound},
		{"other user", claimsFor(other), http.StatusNotFound},
		{"author", claimsFor(author), http.StatusOK},
		{"admin", claimsFor(admin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getPost(h, "secret-draft", tt.claims)
			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}
