package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier validates tokens signed with a shared secret.
type HMACVerifier struct {
	method *jwt.SigningMethodHMAC
	key    []byte
	opts   VerifyOptions
}

// NewVerifierHMAC creates a verifier for alg and secret.
func NewVerifierHMAC(alg string, secret []byte, opts VerifyOptions) (*HMACVerifier, error) {
	method, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty HMAC secret")
	}

	key := make([]byte, len(secret))
	copy(key, secret)
	return &HMACVerifier{method: method, key: key, opts: opts}, nil
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *HMACVerifier) Verify(tokenStr string) (Claims, error) {
	return parse(tokenStr, v.method, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, v.opts)
}
