package jwtx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	kid  string
	pub  ed25519.PublicKey
	opts VerifyOptions
}

// NewVerifierEdDSA creates a verifier for a single Ed25519 public key.
func NewVerifierEdDSA(kid string, pub ed25519.PublicKey, opts VerifyOptions) *EdDSAVerifier {
	return &EdDSAVerifier{kid: kid, pub: pub, opts: opts}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	return parse(tokenStr, jwt.SigningMethodEdDSA, func(t *jwt.Token) (any, error) {
		// A kid, when present, must name our key.
		if kid, _ := t.Header["kid"].(string); kid != "" && kid != v.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return v.pub, nil
	}, v.opts)
}
