package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"web3folio/internal/model"
	"web3folio/internal/store"
)

// testQueries creates a migrated temp database and a query handle.
func testQueries(t *testing.T) *store.Queries {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "auth-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return store.New(db)
}

func createUser(t *testing.T, q *store.Queries, email, password string) model.User {
	t.Helper()

	passwordHash := sql.NullString{}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		passwordHash = sql.NullString{String: hash, Valid: true}
	}

	now := time.Now()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Username:     "user-" + email[:3],
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestVerifyCredentials_Success(t *testing.T) {
	q := testQueries(t)
	user := createUser(t, q, "alice@example.com", "correct horse battery")

	identity, err := VerifyCredentials(context.Background(), q, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("VerifyCredentials error: %v", err)
	}
	if identity == nil {
		t.Fatal("expected identity, got nil")
	}
	if identity.ID != user.ID {
		t.Errorf("identity.ID = %d, want %d", identity.ID, user.ID)
	}
	if identity.Email != "alice@example.com" {
		t.Errorf("identity.Email = %q", identity.Email)
	}
	if identity.Name != user.Username {
		t.Errorf("identity.Name = %q, want %q", identity.Name, user.Username)
	}
}

// Every negative outcome must be indistinguishable: (nil, nil).
func TestVerifyCredentials_NegativesAreUniform(t *testing.T) {
	q := testQueries(t)
	createUser(t, q, "alice@example.com", "correct horse battery")
	createUser(t, q, "oauth@example.com", "") // no password hash

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct horse battery"},
		{"wrong password", "alice@example.com", "wrong password"},
		{"oauth-only account", "oauth@example.com", "any password at all"},
		{"malformed email", "not-an-email", "correct horse battery"},
		{"short password", "alice@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := VerifyCredentials(context.Background(), q, tt.email, tt.password)
			if err != nil {
				t.Fatalf("VerifyCredentials error: %v", err)
			}
			if identity != nil {
				t.Fatalf("expected nil identity, got %+v", identity)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "kevin@example.com", "x.y+z@sub.domain.org"}
	invalid := []string{"", "plain", "a@b", "a b@c.com", "@example.com"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}
