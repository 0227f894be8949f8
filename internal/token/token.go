// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package token issues, verifies and refreshes the signed session token and
// materializes session objects from it. The token is a self-contained,
// client-held projection of the user row: application claims are copied in
// once at sign-in (enrichment) and read back verbatim afterwards, so
// per-request handling never touches storage.
package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"web3folio/internal/store"
)

// Claims is the fixed session claim set. The application claims (role,
// username, walletAddress) are named optional fields, not an open map: an
// unenriched token simply leaves them empty.
type Claims struct {
	Email         string  `json:"email,omitempty"`
	Name          string  `json:"name,omitempty"`
	Role          string  `json:"role,omitempty"`
	Username      string  `json:"username,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
	jwt.RegisteredClaims
}

// Enriched reports whether the application claims were populated at issue
// time. Callers must treat an unenriched token as "claims unknown", not as
// an anonymous guest.
func (c *Claims) Enriched() bool {
	return c.Role != ""
}

// UserID returns the numeric subject, or 0 if the subject is unset/invalid.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Session is the externally visible session object, materialized from a
// verified token. All fields come from the claim set; none are re-fetched.
type Session struct {
	UserID        int64      `json:"id,string"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role,omitempty"`
	Username      string     `json:"username,omitempty"`
	WalletAddress *string    `json:"walletAddress"`
	ExpiresAt     *time.Time `json:"expires,omitempty"`
}

// Materialize builds the session object from verified claims. This is the
// read-side half of enrichment: a verbatim copy, no storage I/O, so it is
// exactly as fresh (or stale) as the token itself.
func Materialize(c *Claims) Session {
	s := Session{
		UserID:        c.UserID(),
		Email:         c.Email,
		Name:          c.Name,
		Role:          c.Role,
		Username:      c.Username,
		WalletAddress: c.WalletAddress,
	}
	if c.ExpiresAt != nil {
		t := c.ExpiresAt.Time
		s.ExpiresAt = &t
	}
	return s
}

// Manager signs and verifies session tokens.
type Manager struct {
	secret   []byte
	lifetime time.Duration
}

// NewManager creates a token manager. The secret must already be validated
// by config loading.
func NewManager(secret string, lifetime time.Duration) *Manager {
	return &Manager{secret: []byte(secret), lifetime: lifetime}
}

// Lifetime returns the configured token lifetime.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue creates a signed token for a freshly authenticated identity.
//
// This is the write-side half of enrichment: the one storage read of the
// token lifecycle copies role, username and wallet address from the user row
// into the claim set. If the row has vanished the token is still issued,
// just without application claims — sign-in does not fail.
func (m *Manager) Issue(ctx context.Context, q *store.Queries, userID int64, email, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}

	user, err := q.GetUserByID(ctx, userID)
	switch {
	case err == nil:
		claims.Role = user.Role
		claims.Username = user.Username
		if user.WalletAddress.Valid {
			addr := user.WalletAddress.String
			claims.WalletAddress = &addr
		}
	case errors.Is(err, sql.ErrNoRows):
		// Token stays unenriched.
	default:
		return "", fmt.Errorf("loading user for enrichment: %w", err)
	}

	return m.sign(claims)
}

// Parse verifies a token string and returns its claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return claims, nil
}

// Refresh re-signs verified claims with a fresh expiry and token ID. The
// application claims are carried over verbatim — refreshes never re-read the
// user row, so claims may lag it until the next sign-in.
func (m *Manager) Refresh(claims *Claims) (string, error) {
	now := time.Now()
	next := *claims
	next.ID = uuid.NewString()
	next.IssuedAt = jwt.NewNumericDate(now)
	next.ExpiresAt = jwt.NewNumericDate(now.Add(m.lifetime))
	return m.sign(&next)
}

func (m *Manager) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
