// Package redis keeps short-lived auth state in Redis: the token revocation
// list, with each entry expiring when the token would have, and failed-login
// counters that expire after a quiet window.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "auth:revoked:"
	failedLoginPrefix = "auth:failed_logins:"
)

// Connect initializes a Redis client from a redis:// URL or host:port.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	var client *goredis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := goredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = goredis.NewClient(opt)
	} else {
		client = goredis.NewClient(&goredis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RevokedTokens implements store.RevokedTokens on Redis keys with TTLs.
type RevokedTokens struct {
	client *goredis.Client
	now    func() time.Time
}

// NewRevokedTokens wraps client.
func NewRevokedTokens(client *goredis.Client) *RevokedTokens {
	return &RevokedTokens{client: client, now: time.Now}
}

func (r *RevokedTokens) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil // already unusable
	}
	return r.client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

func (r *RevokedTokens) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpiredRevokedTokens is a no-op; Redis expires the keys itself.
func (r *RevokedTokens) DeleteExpiredRevokedTokens(context.Context) (int64, error) {
	return 0, nil
}

// Ping checks the Redis connection. The readiness probe uses it.
func (r *RevokedTokens) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// LoginAttempts implements store.LoginAttempts with INCR and a sliding
// EXPIRE per user.
type LoginAttempts struct {
	client *goredis.Client
}

func NewLoginAttempts(client *goredis.Client) *LoginAttempts {
	return &LoginAttempts{client: client}
}

func failedLoginKey(userID int64) string {
	return failedLoginPrefix + strconv.FormatInt(userID, 10)
}

func (a *LoginAttempts) RecordFailure(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	key := failedLoginKey(userID)

	var incr *goredis.IntCmd
	_, err := a.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (a *LoginAttempts) ResetFailures(ctx context.Context, userID int64) error {
	return a.client.Del(ctx, failedLoginKey(userID)).Err()
}
