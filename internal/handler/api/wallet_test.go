// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"web3folio/internal/model"
)

const (
	testEthAddress    = "0xAbCdEf1234567890aBcDeF1234567890abCDef12"
	testSolanaAddress = "4Nd1mYvHGJKQxsMiQ9AyyGFLXpkZ2coUQe3Z9ZUKbsp2"
)

func TestLinkWalletEthereum(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	w := httptest.NewRecorder()
	h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
		LinkWalletRequest{WalletAddress: testEthAddress}, claimsFor(user)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp UserResponse
	decodeResponse(t, w, &resp)
	if resp.WalletAddress == nil || *resp.WalletAddress != testEthAddress {
		t.Errorf("expected wallet %q in response, got %v", testEthAddress, resp.WalletAddress)
	}

	stored, err := h.queries.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !stored.WalletAddress.Valid || stored.WalletAddress.String != testEthAddress {
		t.Errorf("expected stored wallet %q, got %v", testEthAddress, stored.WalletAddress)
	}
}

func TestLinkWalletSolana(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	w := httptest.NewRecorder()
	h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
		LinkWalletRequest{WalletAddress: testSolanaAddress}, claimsFor(user)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLinkWalletInvalidFormat(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"not hex", "0xZZZdEf1234567890aBcDeF1234567890abCDef12"},
		{"too short", "0xabc123"},
		{"base58 with forbidden chars", "0OIl1mYvHGJKQxsMiQ9AyyGFLXpkZ2coUQe3Z9ZU"},
		{"plain text", "not-a-wallet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testSetup(t)
			user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

			w := httptest.NewRecorder()
			h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
				LinkWalletRequest{WalletAddress: tt.address}, claimsFor(user)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			if detail := decodeError(t, w); detail.Message != "Invalid wallet address" {
				t.Errorf("unexpected message %q", detail.Message)
			}
		})
	}
}

func TestLinkWalletMissingAddress(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	w := httptest.NewRecorder()
	h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
		LinkWalletRequest{WalletAddress: "   "}, claimsFor(user)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	detail := decodeError(t, w)
	if detail.Code != "validation_error" {
		t.Errorf("expected code validation_error, got %q", detail.Code)
	}
}

func TestLinkWalletRequiresSession(t *testing.T) {
	h := testSetup(t)

	w := httptest.NewRecorder()
	h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
		LinkWalletRequest{WalletAddress: testEthAddress}, nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestLinkWalletConflictLeavesLinkageUnchanged(t *testing.T) {
	h := testSetup(t)
	alice := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	bob := createTestUser(t, h, "bob", "bob@example.com", model.RoleUser)

	linkWallet(t, h, alice, testEthAddress)

	w := httptest.NewRecorder()
	h.LinkWallet(w, testRequest(t, http.MethodPost, "/api/user/wallet",
		LinkWalletRequest{WalletAddress: testEthAddress}, claimsFor(bob)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if detail := decodeError(t, w); detail.Message != "This wallet is already linked to another account" {
		t.Errorf("unexpected message %q", detail.Message)
	}

	ctx := context.Background()
	storedBob, err := h.queries.GetUserByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("failed to reload bob: %v", err)
	}
	if storedBob.WalletAddress.Valid {
		t.Error("expected the refused link to leave bob without a wallet")
	}
	storedAlice, err := h.queries.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("failed to reload alice: %v", err)
	}
	if !storedAlice.WalletAddress.Valid || storedAlice.WalletAddress.String != testEthAddress {
		t.Error("expected alice's linkage to survive the conflict")
	}
}

func TestRelinkOwnAddressSucceeds(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	linkWallet(t, h, user, testEthAddress)
	linkWallet(t, h, user, testEthAddress)
}

func TestRelinkReplacesAddress(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)

	linkWallet(t, h, user, testEthAddress)
	linkWallet(t, h, user, testSolanaAddress)

	stored, err := h.queries.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !stored.WalletAddress.Valid || stored.WalletAddress.String != testSolanaAddress {
		t.Errorf("expected the new address to replace the old, got %v", stored.WalletAddress)
	}
}

func TestUnlinkWalletIdempotent(t *testing.T) {
	h := testSetup(t)
	user := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	linkWallet(t, h, user, testEthAddress)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.UnlinkWallet(w, testRequest(t, http.MethodDelete, "/api/user/wallet", nil, claimsFor(user)))

		if w.Code != http.StatusOK {
			t.Fatalf("unlink %d: expected status 200, got %d", i+1, w.Code)
		}
		var resp UserResponse
		decodeResponse(t, w, &resp)
		if resp.WalletAddress != nil {
			t.Errorf("unlink %d: expected nil wallet, got %q", i+1, *resp.WalletAddress)
		}
	}
}

func TestFreedAddressCanBeRelinked(t *testing.T) {
	h := testSetup(t)
	alice := createTestUser(t, h, "alice", "alice@example.com", model.RoleUser)
	bob := createTestUser(t, h, "bob", "bob@example.com", model.RoleUser)

	linkWallet(t, h, alice, testEthAddress)

	w := httptest.NewRecorder()
	h.UnlinkWallet(w, testRequest(t, http.MethodDelete, "/api/user/wallet", nil, claimsFor(alice)))
	if w.Code != http.StatusOK {
		t.Fatalf("failed to unlink: %d", w.Code)
	}

	linkWallet(t, h, bob, testEthAddress)
}
