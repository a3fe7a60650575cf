package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mepad/mepad-server/internal/identity"
)

func TestUserAuth_HashAndVerify(t *testing.T) {
	auth := identity.NewUserAuth(4) // low cost for tests

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash equals plaintext")
	}

	if err := auth.VerifyPassword(hash, "secret123"); err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}
	if err := auth.VerifyPassword(hash, "wrong"); !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("VerifyPassword error = %v, want ErrInvalidPassword", err)
	}
}

func TestUserAuth_Authenticate(t *testing.T) {
	ctx := context.Background()
	auth := identity.NewUserAuth(4)
	repo := identity.NewMemoryUserRepo()

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := repo.Create(ctx, &identity.User{Email: "alice@example.com", PasswordHash: hash}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user, err := auth.Authenticate(ctx, repo, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q", user.Email)
	}

	if _, err := auth.Authenticate(ctx, repo, "alice@example.com", "wrong"); !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("Authenticate error = %v, want ErrInvalidPassword", err)
	}
	if _, err := auth.Authenticate(ctx, repo, "nobody@example.com", "secret123"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Errorf("Authenticate error = %v, want ErrUserNotFound", err)
	}
}
