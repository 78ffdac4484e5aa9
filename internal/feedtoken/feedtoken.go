// Package feedtoken derives the stateless tokens that gate anonymous
// read access to a group's exported feed. Tokens are deterministic: they
// stay valid until the server secret rotates, which invalidates every
// previously issued token at once.
package feedtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

type Authenticator struct {
	secret []byte
}

// New builds an Authenticator over the server secret. A nil or empty secret
// disables token issuance entirely.
func New(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// Issue returns the hex feed token for a group, or "" when no secret is
// configured.
func (a *Authenticator) Issue(groupID string) string {
	if len(a.secret) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte("feed:" + groupID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the token and compares in constant time. A feed token
// gates anonymous access, so a variable-time comparison would leak the
// expected value byte by byte.
func (a *Authenticator) Verify(groupID, token string) bool {
	expected := a.Issue(groupID)
	if expected == "" || token == "" {
		return false
	}
	if len(expected) != len(token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
