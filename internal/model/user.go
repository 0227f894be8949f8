// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including User, BlogPost, Tag, Category and Event.
package model

import (
	"database/sql"
	"regexp"
	"time"
)

// User roles. The set is closed; anything else has no elevated access.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an account. PasswordHash and WalletAddress are optional:
// OAuth-provisioned accounts carry no hash, and a wallet address is only
// present after an explicit link.
type User struct {
	ID            int64          `json:"id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	PasswordHash  sql.NullString `json:"-"` // Never expose in JSON
	WalletAddress sql.NullString `json:"walletAddress"`
	Role          string         `json:"role"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastLoginAt   sql.NullTime   `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the minimal result of credential verification: just enough to
// key a session token. It deliberately carries no role or wallet data; those
// are claim-enrichment concerns.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// walletAddressRegex accepts a 0x-prefixed 40-hex-digit EVM address or a
// 32-44 character base58 Solana address.
var walletAddressRegex = regexp.MustCompile(`^(0x[a-fA-F0-9]{40}|[1-9A-HJ-NP-Za-km-z]{32,44})$`)

// IsValidWalletAddress reports whether s is a supported wallet address format.
func IsValidWalletAddress(s string) bool {
	return walletAddressRegex.MatchString(s)
}
