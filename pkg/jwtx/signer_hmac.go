package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACSigner signs tokens with a shared secret.
type HMACSigner struct {
	method *jwt.SigningMethodHMAC
	key    []byte
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case AlgHS256:
		return jwt.SigningMethodHS256, nil
	case AlgHS384:
		return jwt.SigningMethodHS384, nil
	case AlgHS512:
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
}

// NewSignerHMAC creates an HS256/HS384/HS512 signer.
func NewSignerHMAC(alg string, secret []byte) (*HMACSigner, error) {
	method, err := hmacMethod(alg)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty HMAC secret")
	}

	key := make([]byte, len(secret))
	copy(key, secret)
	return &HMACSigner{method: method, key: key}, nil
}

func (s *HMACSigner) Alg() string { return s.method.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HMACSigner) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(s.method, claims).SignedString(s.key)
}
