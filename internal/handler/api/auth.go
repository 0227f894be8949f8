// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"web3folio/internal/auth"
	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/service"
	"web3folio/internal/store"
	"web3folio/internal/token"
)

// Sign-up validation rules. Sign-in is laxer on purpose: accounts predating
// a rule change must still be able to sign in.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinSignupPassword = 8
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SignupRequest is the sign-up request body.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate returns per-field errors, empty when the request is well-formed.
func (req *SignupRequest) validate() map[string]string {
	fieldErrors := make(map[string]string)

	switch {
	case req.Username == "":
		fieldErrors["username"] = "Username is required"
	case len(req.Username) < MinUsernameLength || len(req.Username) > MaxUsernameLength:
		fieldErrors["username"] = fmt.Sprintf("Username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	case !usernameRegex.MatchString(req.Username):
		fieldErrors["username"] = "Username can only contain letters, numbers and underscores"
	}

	if !auth.IsValidEmail(req.Email) {
		fieldErrors["email"] = "A valid email address is required"
	}

	switch {
	case len(req.Password) < MinSignupPassword:
		fieldErrors["password"] = fmt.Sprintf("Password must be at least %d characters", MinSignupPassword)
	case !strings.ContainsAny(req.Password, "abcdefghijklmnopqrstuvwxyz"),
		!strings.ContainsAny(req.Password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"),
		!strings.ContainsAny(req.Password, "0123456789"):
		fieldErrors["password"] = "Password must contain an uppercase letter, a lowercase letter and a number"
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// UserResponse is the public projection of a user account.
type UserResponse struct {
	ID            int64   `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	WalletAddress *string `json:"walletAddress"`
	Role          string  `json:"role"`
}

func toUserResponse(u model.User) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
	if u.WalletAddress.Valid {
		addr := u.WalletAddress.String
		resp.WalletAddress = &addr
	}
	return resp
}

// signupConflictMessage maps a unique violation from CreateUser to the
// message for the column that actually collided.
func signupConflictMessage(err error) string {
	if strings.Contains(err.Error(), "users.username") {
		return "This username is already taken"
	}
	return "A user with this email already exists"
}

// Signup handles POST /api/auth/signup. A successful sign-up signs the new
// user in immediately.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if fieldErrors := req.validate(); fieldErrors != nil {
		WriteValidationError(w, fieldErrors)
		return
	}

	ctx := r.Context()
	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		WriteConflict(w, "A user with this email already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to check email uniqueness", "error", err)
		WriteInternalError(w)
		return
	}
	if _, err := h.queries.GetUserByUsername(ctx, req.Username); err == nil {
		WriteConflict(w, "This username is already taken")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to check username uniqueness", "error", err)
		WriteInternalError(w)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		WriteInternalError(w)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// The unique indexes are the final arbiter for concurrent sign-ups.
		// SQLite names the losing column, which tells the two conflicts apart.
		if store.IsUniqueViolation(err) {
			slog.Warn("user creation rejected by unique index", "error", err, "email", req.Email)
			WriteConflict(w, signupConflictMessage(err))
			return
		}
		slog.Error("failed to create user", "error", err, "email", req.Email)
		WriteInternalError(w)
		return
	}

	_ = h.events.LogUserEvent(ctx, model.EventLevelInfo, "User account created", &user.ID,
		clientIP(r), h.signInMetadata(r))

	if _, err := h.startSession(w, r, user.ID, user.Email, user.Username); err != nil {
		slog.Warn("sign-up succeeded but session issuance failed", "error", err, "user_id", user.ID)
	}
	WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// SigninRequest is the sign-in request body.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signin handles POST /api/auth/signin.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if locked, remaining := h.loginProtection.IsAccountLocked(req.Email); locked {
		WriteError(w, http.StatusTooManyRequests, "account_locked",
			fmt.Sprintf("Too many failed attempts. Try again in %s", remaining.Round(time.Second)), nil)
		return
	}

	ctx := r.Context()
	identity, err := auth.VerifyCredentials(ctx, h.queries, req.Email, req.Password)
	if err != nil {
		slog.Error("credential verification failed", "error", err)
		WriteInternalError(w)
		return
	}
	if identity == nil {
		// Uniform failure: the response never reveals which check failed.
		if locked, _ := h.loginProtection.RecordFailedAttempt(req.Email); locked {
			_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Account locked after failed sign-in attempts",
				nil, clientIP(r), map[string]any{"email": req.Email})
		}
		WriteUnauthorized(w, "Invalid email or password")
		return
	}

	h.loginProtection.RecordSuccessfulLogin(req.Email)
	if err := h.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
		ID:          identity.ID,
	}); err != nil {
		slog.Warn("failed to stamp last login", "error", err, "user_id", identity.ID)
	}

	_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "User signed in", &identity.ID,
		clientIP(r), h.signInMetadata(r))

	session, err := h.startSession(w, r, identity.ID, identity.Email, identity.Name)
	if err != nil {
		slog.Error("failed to issue session token", "error", err, "user_id", identity.ID)
		WriteInternalError(w)
		return
	}
	WriteJSON(w, http.StatusOK, SessionResponse{User: session})
}

// startSession issues an enriched token, sets the session cookie and returns
// the materialized session. Issue and parse go through the same manager, so
// the response body matches the cookie exactly.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID int64, email, name string) (*token.Session, error) {
	signed, err := h.tokens.Issue(r.Context(), h.queries, userID, email, name)
	if err != nil {
		return nil, err
	}
	token.WriteCookie(w, signed, h.tokens.Lifetime(), h.secureCookies())

	claims, err := h.tokens.Parse(signed)
	if err != nil {
		return nil, err
	}
	session := token.Materialize(claims)
	return &session, nil
}

// Signout handles POST /api/auth/signout. Always succeeds: the token is
// client-held, so clearing the cookie is the whole operation.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	if claims := middleware.GetClaims(r); claims != nil {
		id := claims.UserID()
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User signed out", &id, clientIP(r), nil)
	}

	token.ClearCookie(w, h.secureCookies())
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SessionResponse wraps the current session, or null when anonymous.
type SessionResponse struct {
	User *token.Session `json:"user"`
}

// Session handles GET /api/auth/session. The session object is materialized
// from the verified token claims alone; nothing is re-read from storage, so
// the fields are exactly as fresh as the last sign-in.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		WriteJSON(w, http.StatusOK, SessionResponse{User: nil})
		return
	}

	session := token.Materialize(claims)
	WriteJSON(w, http.StatusOK, SessionResponse{User: &session})
}

// signInMetadata builds audit metadata from the request's User-Agent.
func (h *Handler) signInMetadata(r *http.Request) map[string]any {
	return service.ClientMetadata(r.UserAgent())
}

// clientIP extracts the client IP, honoring reverse proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
