// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"web3folio/internal/model"
	"web3folio/internal/store"
)

// MinPasswordLength is the minimum password length accepted at sign-in.
// Shorter inputs are rejected without touching storage.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// VerifyCredentials checks an email+password pair against stored hashes.
//
// On success it returns the minimal identity for token issuance. Every
// negative outcome — malformed input, unknown email, an account without a
// password hash (OAuth-provisioned), or a wrong password — returns (nil, nil)
// so callers cannot distinguish them. Only storage failures return an error.
func VerifyCredentials(ctx context.Context, q *store.Queries, email, password string) (*model.Identity, error) {
	if !IsValidEmail(email) || len(password) < MinPasswordLength {
		return nil, nil
	}

	user, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	// OAuth-only accounts have no hash to compare against; fail closed.
	if !user.PasswordHash.Valid {
		return nil, nil
	}

	valid, err := CheckPassword(password, user.PasswordHash.String)
	if err != nil || !valid {
		return nil, nil
	}

	// Transparently upgrade hashes created with older parameters.
	if NeedsRehash(user.PasswordHash.String) {
		if rehashed, err := HashPassword(password); err == nil {
			if err := q.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
				PasswordHash: rehashed,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Warn("failed to upgrade password hash", "error", err, "user_id", user.ID)
			}
		}
	}

	return &model.Identity{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Username,
	}, nil
}
