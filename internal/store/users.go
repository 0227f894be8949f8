// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"web3folio/internal/model"
)

const userColumns = `id, username, email, password_hash, wallet_address, role, created_at, updated_at, last_login_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.WalletAddress,
		&u.Role, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash sql.NullString
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.PasswordHash, arg.Role, arg.CreatedAt, arg.UpdatedAt)
	return scanUser(row)
}

// GetUserByID returns the user with the given ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user with the given email (exact match).
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByUsername returns the user with the given username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetWalletOwnerParams holds the fields for GetWalletOwner.
type GetWalletOwnerParams struct {
	WalletAddress string
	ExcludeUserID int64
}

// GetWalletOwner returns the user, other than ExcludeUserID, currently
// holding the given wallet address. sql.ErrNoRows means the address is free.
func (q *Queries) GetWalletOwner(ctx context.Context, arg GetWalletOwnerParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE wallet_address = ? AND id != ?`,
		arg.WalletAddress, arg.ExcludeUserID)
	return scanUser(row)
}

// SetUserWalletParams holds the fields for SetUserWallet.
type SetUserWalletParams struct {
	WalletAddress sql.NullString
	UpdatedAt     time.Time
	ID            int64
}

// SetUserWallet sets or clears (NULL) the wallet address on a user and
// returns the updated row. The partial unique index on wallet_address is the
// backstop for concurrent links of the same address.
func (q *Queries) SetUserWallet(ctx context.Context, arg SetUserWalletParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users SET wallet_address = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		arg.WalletAddress, arg.UpdatedAt, arg.ID)
	return scanUser(row)
}

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin stamps the last successful sign-in time.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`,
		arg.LastLoginAt, arg.ID)
	return err
}

// ListUsersParams holds the fields for ListUsers.
type ListUsersParams struct {
	Limit  int64
	Offset int64
}

// ListUsers returns users ordered by creation time, newest first.
func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.WalletAddress,
			&u.Role, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
