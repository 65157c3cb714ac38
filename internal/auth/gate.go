// Package auth implements the password gate in front of the tracker.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tracker/internal/session"
)

// ErrAuthenticationFailed is reported when the submitted password is wrong.
var ErrAuthenticationFailed = errors.New("incorrect password")

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Gate compares submitted passwords with the single configured secret.
// There is no lockout: every attempt is checked the same way.
type Gate struct {
	secret []byte
	hashed bool
}

// NewGate builds a gate for secret. A bcrypt hash is verified with bcrypt,
// anything else is compared verbatim.
func NewGate(secret string) *Gate {
	hashed := false
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(secret, p) {
			hashed = true
			break
		}
	}
	return &Gate{secret: []byte(secret), hashed: hashed}
}

// Check reports whether submitted matches the secret.
func (g *Gate) Check(submitted string) bool {
	if len(g.secret) == 0 {
		return false
	}
	if g.hashed {
		return bcrypt.CompareHashAndPassword(g.secret, []byte(submitted)) == nil
	}
	return subtle.ConstantTimeCompare(g.secret, []byte(submitted)) == 1
}

// Authenticate marks sess as authenticated when submitted matches. On a
// mismatch the flag is left untouched and ErrAuthenticationFailed returned.
func (g *Gate) Authenticate(sess *session.Session, submitted string) error {
	if !g.Check(submitted) {
		return ErrAuthenticationFailed
	}
	sess.Authenticated = true
	return nil
}

// Allowed reports whether sess may see gated content.
func Allowed(sess *session.Session) bool {
	return sess != nil && sess.Authenticated
}
