package sqlite

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *revokedTokensRepo) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at, revoked_at) VALUES (?, ?, ?)
		ON CONFLICT (jti) DO UPDATE SET expires_at = max(expires_at, excluded.expires_at)`,
		jti, expiresAt.Unix(), r.now().Unix(),
	)
	return mapWriteError(err)
}

func (r *revokedTokensRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM revoked_tokens WHERE jti = ? AND expires_at > ?`,
		jti, r.now().Unix(),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
