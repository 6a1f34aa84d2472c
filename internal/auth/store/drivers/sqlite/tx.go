package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/store"
)

// ErrNestedTx is returned when a transaction is started from inside another.
var ErrNestedTx = errors.New("sqlite: nested transactions are not supported")

// txStore scopes every repository to one *sql.Tx.
type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

func newTx(tx *sql.Tx, now func() time.Time) *txStore {
	return &txStore{tx: tx, now: now}
}

func (t *txStore) Users() store.Users { return &usersRepo{db: t.tx, now: t.now} }

func (t *txStore) RevokedTokens() store.RevokedTokens {
	return &revokedTokensRepo{db: t.tx, now: t.now}
}

func (t *txStore) LoginAttempts() store.LoginAttempts {
	return &loginAttemptsRepo{db: t.tx, now: t.now}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return ErrNestedTx }

// The connection is already held and owned by the outer store.
func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) ApplyMigrations() error     { return nil }
