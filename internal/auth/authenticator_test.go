package auth

import (
	"testing"

	"imgproxy/internal/config"
)

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("bcrypt-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a := New([]config.User{
		{Username: "alice", Password: "plain-pass"},
		{Username: "bob", PasswordHash: hash},
		{Username: "carol", Password: "ignored", PasswordHash: hash},
		{Username: "alice", Password: "duplicate"},
	})

	tests := []struct {
		name     string
		user     string
		password string
		want     bool
	}{
		{"plaintext ok", "alice", "plain-pass", true},
		{"plaintext wrong", "alice", "plain-pas", false},
		{"duplicate ignored", "alice", "duplicate", false},
		{"bcrypt ok", "bob", "bcrypt-pass", true},
		{"bcrypt wrong", "bob", "plain-pass", false},
		{"hash wins over plaintext", "carol", "ignored", false},
		{"hash wins ok", "carol", "bcrypt-pass", true},
		{"case sensitive", "Alice", "plain-pass", false},
		{"unknown", "mallory", "plain-pass", false},
		{"empty password", "alice", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Authenticate(tt.user, tt.password); got != tt.want {
				t.Fatalf("Authenticate(%q, %q) = %v, want %v", tt.user, tt.password, got, tt.want)
			}
		})
	}
	if a.Len() != 3 {
		t.Fatalf("expected 3 users, got %d", a.Len())
	}
}

func TestNilAuthenticator(t *testing.T) {
	var a *Authenticator
	if a.Authenticate("x", "y") {
		t.Fatal("nil authenticator must reject")
	}
}
