// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seed populates a development database with demo content. It sits
// above both auth and store, which keeps password hashing out of the
// storage layer.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"web3folio/internal/auth"
	"web3folio/internal/model"
	"web3folio/internal/store"
)

// Run populates a development database with a demo account and a few posts.
// It is a no-op unless enabled, and never touches a database that already
// has users.
func Run(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	q := store.New(db)

	count, err := q.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Debug("seed skipped, users already present", "count", count)
		return nil
	}

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	now := time.Now()
	user, err := q.CreateUser(ctx, store.CreateUserParams{
		Username:     "kevinkabore",
		Email:        "kevin@example.com",
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating seed user: %w", err)
	}

	if _, err := q.SetUserWallet(ctx, store.SetUserWalletParams{
		WalletAddress: sql.NullString{String: "0x742d35Cc6634C0532925a3b844Bc9e7595f5b899", Valid: true},
		UpdatedAt:     now,
		ID:            user.ID,
	}); err != nil {
		return fmt.Errorf("linking seed wallet: %w", err)
	}

	posts := []store.CreatePostParams{
		{
			Title:     "Welcome to My Web3 Blog",
			Slug:      "welcome-to-my-web3-blog",
			Content:   "# Welcome to My Web3 Blog\n\nThis is my first post on this platform.",
			Published: true,
		},
		{
			Title:     "Building a Portfolio Backend in Go",
			Slug:      "building-a-portfolio-backend-in-go",
			Content:   "# Building a Portfolio Backend in Go\n\nNotes on the stack behind this site.",
			Published: true,
		},
		{
			Title:     "Draft: The Future of Decentralized Publishing",
			Slug:      "draft-future-of-decentralized-publishing",
			Content:   "# The Future of Decentralized Publishing\n\nExploring ideas about decentralized content creation...",
			Published: false,
		},
	}

	for _, p := range posts {
		p.AuthorID = user.ID
		p.CreatedAt = now
		p.UpdatedAt = now
		if p.Published {
			p.PublishedAt = sql.NullTime{Time: now, Valid: true}
		}
		if _, err := q.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("creating seed post %q: %w", p.Slug, err)
		}
	}

	slog.Info("development seed completed", "user", user.Username, "posts", len(posts))
	return nil
}
