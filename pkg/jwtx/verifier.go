package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// parse verifies tokenStr with key under method. A token whose exp has
// passed reports ErrExpired even when its signature does not verify.
func parse(tokenStr string, method jwt.SigningMethod, keyFunc jwt.Keyfunc, opts VerifyOptions) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithTimeFunc(opts.now),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	var claims Claims
	_, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenStr, &claims, keyFunc)
	if err == nil {
		return claims, nil
	}

	if expiredUnverified(tokenStr, opts) {
		return Claims{}, ErrExpired
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Claims{}, ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return Claims{}, ErrIssuer
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
}

// expiredUnverified decodes the payload without checking the signature and
// reports whether its exp lies in the past.
func expiredUnverified(tokenStr string, opts VerifyOptions) bool {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !opts.now().Before(claims.ExpiresAt.Add(opts.Leeway))
}
