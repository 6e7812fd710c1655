// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

// Package postgres implements auth.AccountStore using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/rentuma/authcore/internal/auth"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock's
// PgxPoolIface satisfies it, so unit tests run without a database.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountStore using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, active,
	       failed_attempts, locked_until, last_login_at, created_at, updated_at`

// Create stores a new account and assigns its database-generated ID.
// Unique-index violations map to the duplicate-username/email failures so
// a registration that races the uniqueness pre-check still reports the
// right error.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (
			username, email, password_hash, active,
			failed_attempts, locked_until, last_login_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Active,
		account.FailedAttempts,
		account.LockedUntil,
		account.LastLoginAt,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if dupErr := duplicateError(err, account.Username); dupErr != nil {
			return dupErr
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(username) = LOWER($1)
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

// GetByIdentifier retrieves an account matching the identifier as a
// username, falling back to email, in a single query. The caller never
// learns which form matched.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		ORDER BY (LOWER(username) = LOWER($1)) DESC
		LIMIT 1
	`, identifier)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_IDENTIFIER_FAILED").
			With("operation", "get account by identifier").
			Wrap(err)
	}
	return account, nil
}

// ExistsByUsername reports whether an account with the username exists.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(username) = LOWER($1))
	`, username).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check username exists").
			With("username", username).
			Wrap(err)
	}
	return exists, nil
}

// ExistsByEmail reports whether an account with the email exists.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))
	`, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check email exists").
			Wrap(err)
	}
	return exists, nil
}

// Update persists all mutable fields of an existing account. Username and
// created_at are immutable and never written.
func (r *AccountRepository) Update(ctx context.Context, account *auth.Account) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			email = $2,
			password_hash = $3,
			active = $4,
			failed_attempts = $5,
			locked_until = $6,
			last_login_at = $7,
			updated_at = $8
		WHERE id = $1
	`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Active,
		account.FailedAttempts,
		account.LockedUntil,
		account.LastLoginAt,
		account.UpdatedAt,
	)
	if err != nil {
		if dupErr := duplicateError(err, account.Username); dupErr != nil {
			return dupErr
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", account.ID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", account.ID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLoginState atomically writes the lockout fields of one account in
// a single guarded statement: the row is only written when its stored
// failed-attempt count still matches expectedFailures, so two concurrent
// failed attempts cannot both apply the same increment.
func (r *AccountRepository) UpdateLoginState(ctx context.Context, id int64, expectedFailures, failures int, lockedUntil, lastLoginAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			failed_attempts = $3,
			locked_until = $4,
			last_login_at = COALESCE($5, last_login_at),
			updated_at = now()
		WHERE id = $1 AND failed_attempts = $2
	`, id, expectedFailures, failures, lockedUntil, lastLoginAt)
	if err != nil {
		return oops.Code("ACCOUNT_LOGIN_STATE_FAILED").
			With("operation", "update login state").
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		exists, existsErr := r.existsByID(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return oops.Code("ACCOUNT_NOT_FOUND").
				With("id", id).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("ACCOUNT_STALE").
			With("id", id).
			With("expected_failures", expectedFailures).
			Wrap(auth.ErrStaleAccount)
	}
	return nil
}

func (r *AccountRepository) existsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check account exists").
			With("id", id).
			Wrap(err)
	}
	return exists, nil
}

// scanAccount scans one account row.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	account := &auth.Account{}
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Active,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return account, nil
}

// duplicateError maps a unique-index violation to the matching duplicate
// failure, or returns nil if err is not one.
func duplicateError(err error, username string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "accounts_username_key":
		return oops.Code("AUTH_DUPLICATE_USERNAME").
			With("username", username).
			Errorf("username already exists")
	case "accounts_email_key":
		return oops.Code("AUTH_DUPLICATE_EMAIL").
			Errorf("email already exists")
	default:
		return nil
	}
}
