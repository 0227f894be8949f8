// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"web3folio/internal/model"
	"web3folio/internal/store"
)

// walletConflictMessage is returned whenever an address is held by another
// account, whether caught by the pre-check or by the unique index.
const walletConflictMessage = "This wallet is already linked to another account"

// LinkWalletRequest is the wallet link request body.
type LinkWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// LinkWallet handles POST /api/user/wallet. Linking overwrites any address
// the account already holds; the uniqueness check excludes the caller so
// re-linking your own address is a no-op, not a conflict.
func (h *Handler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	claims := requireSession(w, r)
	if claims == nil {
		return
	}

	var req LinkWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	address := strings.TrimSpace(req.WalletAddress)

	if address == "" {
		WriteValidationError(w, map[string]string{"walletAddress": "Wallet address is required"})
		return
	}
	if !model.IsValidWalletAddress(address) {
		WriteBadRequest(w, "Invalid wallet address", nil)
		return
	}

	ctx := r.Context()
	userID := claims.UserID()

	_, err := h.queries.GetWalletOwner(ctx, store.GetWalletOwnerParams{
		WalletAddress: address,
		ExcludeUserID: userID,
	})
	switch {
	case err == nil:
		WriteConflict(w, walletConflictMessage)
		return
	case !errors.Is(err, sql.ErrNoRows):
		slog.Error("failed to check wallet ownership", "error", err)
		WriteInternalError(w)
		return
	}

	user, err := h.queries.SetUserWallet(ctx, store.SetUserWalletParams{
		WalletAddress: sql.NullString{String: address, Valid: true},
		UpdatedAt:     time.Now(),
		ID:            userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "User not found")
			return
		}
		// A concurrent link can slip past the pre-check; the partial unique
		// index rejects it here and the caller's linkage is left unchanged.
		if store.IsUniqueViolation(err) {
			slog.Warn("wallet link rejected by unique index", "error", err, "user_id", userID)
			WriteConflict(w, walletConflictMessage)
			return
		}
		slog.Error("failed to link wallet", "error", err, "user_id", userID)
		WriteInternalError(w)
		return
	}

	_ = h.events.LogWalletEvent(ctx, model.EventLevelInfo, "Wallet linked", &userID,
		clientIP(r), map[string]any{"wallet_address": address})

	WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// UnlinkWallet handles DELETE /api/user/wallet. Idempotent: unlinking an
// account with no wallet succeeds.
func (h *Handler) UnlinkWallet(w http.ResponseWriter, r *http.Request) {
	claims := requireSession(w, r)
	if claims == nil {
		return
	}

	ctx := r.Context()
	userID := claims.UserID()

	user, err := h.queries.SetUserWallet(ctx, store.SetUserWalletParams{
		WalletAddress: sql.NullString{},
		UpdatedAt:     time.Now(),
		ID:            userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "User not found")
			return
		}
		slog.Error("failed to unlink wallet", "error", err, "user_id", userID)
		WriteInternalError(w)
		return
	}

	_ = h.events.LogWalletEvent(ctx, model.EventLevelInfo, "Wallet unlinked", &userID, clientIP(r), nil)

	WriteJSON(w, http.StatusOK, toUserResponse(user))
}
