package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"tracker/internal/session"
)

func TestAuthenticatePlainSecret(t *testing.T) {
	g := NewGate("s3cret")

	var sess session.Session
	if err := g.Authenticate(&sess, "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if sess.Authenticated || Allowed(&sess) {
		t.Fatalf("wrong password must not authenticate")
	}

	// Retries are unlimited.
	for i := 0; i < 20; i++ {
		_ = g.Authenticate(&sess, "nope")
	}
	if err := g.Authenticate(&sess, "s3cret"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !sess.Authenticated || !Allowed(&sess) {
		t.Fatalf("correct password should authenticate")
	}
}

func TestWrongPasswordKeepsExistingFlag(t *testing.T) {
	g := NewGate("s3cret")
	sess := session.Session{Authenticated: true}
	_ = g.Authenticate(&sess, "wrong")
	if !sess.Authenticated {
		t.Fatalf("failed attempt should not log out an authenticated session")
	}
}

func TestCheckIsExactMatch(t *testing.T) {
	g := NewGate("Secret")
	for _, in := range []string{"secret", "Secret ", " Secret", "", "Secre"} {
		if g.Check(in) {
			t.Fatalf("%q should not match", in)
		}
	}
	if !g.Check("Secret") {
		t.Fatalf("exact secret should match")
	}
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	g := NewGate("")
	if g.Check("") || g.Check("x") {
		t.Fatalf("empty secret must never match")
	}
}

func TestBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	g := NewGate(string(hash))
	if !g.Check("hunter2") {
		t.Fatalf("bcrypt secret should verify")
	}
	if g.Check(string(hash)) {
		t.Fatalf("the hash itself must not be accepted as password")
	}
}

func TestAllowedNil(t *testing.T) {
	if Allowed(nil) {
		t.Fatalf("nil session is never allowed")
	}
}
