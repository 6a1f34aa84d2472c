package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
	"github.com/aussiebroadwan/storefront/internal/auth/store"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, is_blocked,
	is_2fa_enabled, totp_secret, totp_last_counter, last_login_at, last_login_ip,
	last_login_device, created_at, updated_at`

type usersRepo struct {
	db  dbtx
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u       domain.User
		role    string
		secret  sql.NullString
		counter sql.NullInt64
		lastAt  sql.NullInt64
		created int64
		updated int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &role, &u.IsBlocked,
		&u.TwoFactorEnabled, &secret, &counter, &lastAt, &u.LastLoginIP,
		&u.LastLoginDevice, &created, &updated,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.TOTPSecret = stringPtr(secret)
	u.TOTPLastCounter = int64Ptr(counter)
	if lastAt.Valid {
		t := time.Unix(lastAt.Int64, 0).UTC()
		u.LastLoginAt = &t
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email)))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := r.now().UTC().Truncate(time.Second)
	u.Email = domain.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, first_name, last_name, password_hash, role, is_blocked,
			is_2fa_enabled, totp_secret, totp_last_counter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, string(u.Role), u.IsBlocked,
		u.TwoFactorEnabled, nullString(u.TOTPSecret), u.TOTPLastCounter, now.Unix(), now.Unix(),
	)
	if err != nil {
		return domain.User{}, mapWriteError(err)
	}

	if u.ID, err = res.LastInsertId(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UpdateUser builds one UPDATE ... RETURNING so the whole change, and the
// row it produces, are a single atomic step.
func (r *usersRepo) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.FirstName != nil {
		set("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		set("last_name", *upd.LastName)
	}
	if upd.PasswordHash != nil {
		set("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.IsBlocked != nil {
		set("is_blocked", *upd.IsBlocked)
	}
	if upd.TwoFactorEnabled != nil {
		set("is_2fa_enabled", *upd.TwoFactorEnabled)
	}
	switch {
	case upd.ClearTOTPSecret:
		sets = append(sets, "totp_secret = NULL", "totp_last_counter = NULL")
	case upd.TOTPSecret != nil:
		// A new secret starts a new counter space.
		set("totp_secret", *upd.TOTPSecret)
		sets = append(sets, "totp_last_counter = NULL")
	}

	if len(sets) == 0 {
		return r.GetUserByID(ctx, id)
	}

	set("updated_at", r.now().Unix())
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.User{}, mapWriteError(err)
	}
	return u, nil
}

func (r *usersRepo) ConsumeTOTPCounter(ctx context.Context, id int64, counter int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET totp_last_counter = ?, updated_at = ?
		WHERE id = ? AND (totp_last_counter IS NULL OR totp_last_counter < ?)`,
		counter, r.now().Unix(), id, counter,
	)
	if err != nil {
		return false, mapWriteError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	// Nothing changed: either the step is stale or the user is gone.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, store.ErrNotFound
	}
	return false, err
}

func (r *usersRepo) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) RecordLogin(ctx context.Context, id int64, client domain.ClientInfo) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = ?, last_login_ip = ?, last_login_device = ?
		WHERE id = ?`,
		r.now().Unix(), client.IP, client.Device, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow maps an UPDATE or DELETE that matched nothing to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
