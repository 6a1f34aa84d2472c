package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// TokenService issues and decodes the service's signed tokens.
type TokenService struct {
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock overrides time.Now for issuance. The verifier has its own.
	Clock func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Issue signs claims with exp = now + ttl. Any timing fields and jti on the
// input are replaced.
func (s *TokenService) Issue(claims jwtx.Claims, ttl time.Duration) (string, error) {
	token, err := s.Signer.Sign(claims.Stamp(s.Issuer, ttl, s.now()))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// IssuePair issues an access and a refresh token for user.
func (s *TokenService) IssuePair(user domain.User) (domain.TokenPair, error) {
	return s.IssuePairFromClaims(jwtx.NewClaims(user.Email, user.ID, string(user.Role)))
}

// IssuePairFromClaims re-issues a pair from an existing claim set. Prior
// expiry, jti and the temporary marker are dropped and expiry is computed
// from now.
func (s *TokenService) IssuePairFromClaims(claims jwtx.Claims) (domain.TokenPair, error) {
	base := claims.Base()

	access, err := s.Issue(base, s.accessTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Issue(base, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL() / time.Second),
	}, nil
}

// IssueTemporary issues the short-lived token that only the second-factor
// login step accepts.
func (s *TokenService) IssueTemporary(user domain.User) (domain.TwoFactorChallenge, error) {
	claims := jwtx.NewClaims(user.Email, user.ID, string(user.Role))
	claims.TempAuth = true

	token, err := s.Issue(claims, jwtx.TemporaryTokenTTL)
	if err != nil {
		return domain.TwoFactorChallenge{}, err
	}
	return domain.TwoFactorChallenge{
		TemporaryToken: token,
		ExpiresIn:      int64(jwtx.TemporaryTokenTTL / time.Second),
	}, nil
}

// Decode verifies signature and expiry. An expired token reports
// ErrTokenExpired whatever its signature; anything else is ErrTokenInvalid.
func (s *TokenService) Decode(token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwtx.ErrExpired):
		return jwtx.Claims{}, ErrTokenExpired
	default:
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// DecodeAndValidate is Decode plus a required subject.
func (s *TokenService) DecodeAndValidate(token string) (jwtx.Claims, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Subject == "" {
		return jwtx.Claims{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

// DecodeAccess accepts only full, unrevoked tokens. This is what resource
// endpoints authenticate with.
func (s *TokenService) DecodeAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.DecodeAndValidate(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.TempAuth {
		return jwtx.Claims{}, fmt.Errorf("%w: temporary token", ErrTokenInvalid)
	}

	revoked, err := s.IsRevoked(ctx, claims)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if revoked {
		return jwtx.Claims{}, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}
	return claims, nil
}

// Revoke blocks the token identified by claims until its natural expiry.
func (s *TokenService) Revoke(ctx context.Context, claims jwtx.Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil || s.Store == nil {
		return nil
	}
	return s.Store.RevokedTokens().RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
}

// IsRevoked reports whether claims' jti is on the revocation list.
func (s *TokenService) IsRevoked(ctx context.Context, claims jwtx.Claims) (bool, error) {
	if claims.ID == "" || s.Store == nil {
		return false, nil
	}
	revoked, err := s.Store.RevokedTokens().IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}
