package signing

import "testing"

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	sig := s.Sign("user-1", "note-1", 1700000000)
	if len(sig) == 0 {
		t.Fatalf("expected signature")
	}
	if !s.Validate("user-1", "note-1", "1700000000", sig) {
		t.Fatalf("expected signature to validate")
	}
	if s.Validate("user-2", "note-1", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong user")
	}
	if s.Validate("user-1", "note-2", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong note")
	}
	if s.Validate("user-1", "note-1", "42", sig) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if s.Validate("user-1", "note-1", "not-a-number", sig) {
		t.Fatalf("expected validation to fail for malformed expiry")
	}
}

func TestSignersWithDifferentSecretsDisagree(t *testing.T) {
	a := NewSigner([]byte("secret-a"))
	b := NewSigner([]byte("secret-b"))
	sig := a.Sign("user-1", "note-1", 1700000000)
	if b.Validate("user-1", "note-1", "1700000000", sig) {
		t.Fatalf("expected signature from another secret to fail")
	}
}
