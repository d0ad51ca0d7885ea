package auth

import (
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "hunter22" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)
	token := store.Create("user-1")
	if token == "" {
		t.Fatalf("expected a token")
	}
	userID, ok := store.Get(token)
	if !ok || userID != "user-1" {
		t.Fatalf("expected session to resolve to user-1, got %q ok=%v", userID, ok)
	}
	store.Delete(token)
	if _, ok := store.Get(token); ok {
		t.Fatalf("expected deleted session to be gone")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(-time.Minute)
	token := store.Create("user-1")
	if _, ok := store.Get(token); ok {
		t.Fatalf("expected expired session to be rejected")
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	store := NewSessionStore(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := store.Create("user-1")
		if seen[token] {
			t.Fatalf("duplicate session token issued")
		}
		seen[token] = true
	}
}
