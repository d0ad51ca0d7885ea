package model

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"pending", "approved", "rejected"} {
		status, ok := ParseOrderStatus(valid)
		if !ok || string(status) != valid {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	for _, invalid := range []string{"", "Pending", "APPROVED", "shipped", "free"} {
		if _, ok := ParseOrderStatus(invalid); ok {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}

func TestParseAccessMode(t *testing.T) {
	for _, valid := range []string{"free", "paid"} {
		mode, ok := ParseAccessMode(valid)
		if !ok || string(mode) != valid {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	for _, invalid := range []string{"", "Free", "PAID", "pending"} {
		if _, ok := ParseAccessMode(invalid); ok {
			t.Fatalf("expected %q to be rejected", invalid)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Fatalf("admin role should report admin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Fatalf("user role should not report admin")
	}
}
