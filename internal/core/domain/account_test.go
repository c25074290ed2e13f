package domain

import "testing"

func TestAccountGuestClassification(t *testing.T) {
	guest := Account{ID: "guest-1"}
	if !guest.IsGuest() {
		t.Fatal("account without a user name must be a guest")
	}
	if got := guest.DisplayName(); got != "guest" {
		t.Fatalf("expected display name %q, got %q", "guest", got)
	}

	name := "alice"
	registered := Account{ID: "user-1", UserName: &name}
	if registered.IsGuest() {
		t.Fatal("account with a user name must not be a guest")
	}
	if got := registered.DisplayName(); got != "alice" {
		t.Fatalf("expected display name %q, got %q", "alice", got)
	}
}
