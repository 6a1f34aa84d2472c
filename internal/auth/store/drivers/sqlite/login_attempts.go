package sqlite

import (
	"context"
	"time"
)

// loginAttemptsRepo keeps the failure count on the user row.
type loginAttemptsRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *loginAttemptsRepo) RecordFailure(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	now := r.now()
	cutoff := now.Add(-window).Unix()

	var n int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_logins = CASE
				WHEN failed_login_at IS NULL OR failed_login_at <= ? THEN 1
				ELSE failed_logins + 1
			END,
			failed_login_at = ?
		WHERE id = ?
		RETURNING failed_logins`,
		cutoff, now.Unix(), userID,
	).Scan(&n)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *loginAttemptsRepo) ResetFailures(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_logins = 0, failed_login_at = NULL WHERE id = ?`, userID)
	return err
}
