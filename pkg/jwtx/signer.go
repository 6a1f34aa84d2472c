package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported signing algorithms.
const (
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
	AlgEdDSA = "EdDSA"
)

// MinHMACSecretLength is the shortest secret accepted for HMAC signing.
const MinHMACSecretLength = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// KeyConfig describes the signing key material for NewKeyPair.
type KeyConfig struct {
	// Algorithm is one of HS256, HS384, HS512 or EdDSA. Empty means HS256.
	Algorithm string

	// Secret is the shared HMAC key.
	Secret []byte

	// PrivateKey is the Ed25519 key. A fresh one is generated when nil.
	PrivateKey ed25519.PrivateKey

	// Verification expectations.
	Options VerifyOptions
}

// IsHMAC reports whether alg is one of the HMAC algorithms.
func IsHMAC(alg string) bool {
	switch strings.ToUpper(alg) {
	case "", AlgHS256, AlgHS384, AlgHS512:
		return true
	}
	return false
}

// NewKeyPair builds a matched signer and verifier from cfg.
func NewKeyPair(cfg KeyConfig) (Signer, Verifier, error) {
	alg := cfg.Algorithm
	if alg == "" {
		alg = AlgHS256
	}

	if IsHMAC(alg) {
		signer, err := NewSignerHMAC(strings.ToUpper(alg), cfg.Secret)
		if err != nil {
			return nil, nil, err
		}
		verifier, err := NewVerifierHMAC(strings.ToUpper(alg), cfg.Secret, cfg.Options)
		if err != nil {
			return nil, nil, err
		}
		return signer, verifier, nil
	}

	if !strings.EqualFold(alg, AlgEdDSA) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}

	key := cfg.PrivateKey
	if key == nil {
		var err error
		if _, key, err = ed25519.GenerateKey(rand.Reader); err != nil {
			return nil, nil, fmt.Errorf("jwtx: generate Ed25519 key: %w", err)
		}
	}

	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok || len(key) != ed25519.PrivateKeySize {
		return nil, nil, errors.New("jwtx: invalid Ed25519 private key")
	}
	kid := KeyID(pub)

	signer, err := NewSignerEdDSA(kid, key)
	if err != nil {
		return nil, nil, err
	}
	return signer, NewVerifierEdDSA(kid, pub, cfg.Options), nil
}

// KeyID derives a stable key id from a public key.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

func (o VerifyOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
