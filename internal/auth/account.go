// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Account represents a durable identity record.
//
// Username and email are globally unique. CreatedAt is immutable after
// creation. FailedAttempts and LockedUntil are mutated only through the
// lockout policy during login attempts.
type Account struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	Active         bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAccount creates a validated Account with initialized security state.
// The password hash must already be computed; plaintext never reaches
// the account record.
func NewAccount(username, email, passwordHash string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		Username:       username,
		Email:          email,
		PasswordHash:   passwordHash,
		Active:         true,
		FailedAttempts: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsLocked returns true if the account is currently locked out.
func (a *Account) IsLocked() bool {
	return IsLockedOut(a.LockedUntil)
}

// RecordFailure increments the failure counter and sets the lockout expiry
// if the policy threshold is reached. A stale lockout expiry from a previous
// window is discarded rather than extended.
func (a *Account) RecordFailure(policy LockoutPolicy) {
	a.FailedAttempts++
	a.LockedUntil = policy.ComputeLockoutTime(a.FailedAttempts)
	a.UpdatedAt = time.Now()
}

// RecordSuccess resets the failure counter, clears any lockout expiry, and
// stamps the last successful login.
func (a *Account) RecordSuccess() {
	now := time.Now()
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

// Profile is the public view of an account. It is safe to return to
// clients; the password hash never leaves the engine.
type Profile struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
}

// Profile returns the public view of the account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// AccountStore manages account persistence.
type AccountStore interface {
	// Create stores a new account and assigns its ID.
	Create(ctx context.Context, account *Account) error

	// GetByUsername retrieves an account by username (case-insensitive).
	// Returns ErrNotFound if no account matches.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account matches.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByIdentifier retrieves an account by username, falling back to
	// email. Which form matched is never reported to the caller.
	// Returns ErrNotFound if neither matches.
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)

	// ExistsByUsername reports whether an account with the username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether an account with the email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Update persists all mutable fields of an existing account.
	Update(ctx context.Context, account *Account) error

	// UpdateLoginState atomically writes the lockout fields of one account.
	// The write is guarded by expectedFailures: if the stored failed-attempt
	// count differs, nothing is written and ErrStaleAccount is returned, so
	// two concurrent failed attempts cannot lose an increment. lastLoginAt
	// is stamped only when non-nil.
	UpdateLoginState(ctx context.Context, id int64, expectedFailures, failures int, lockedUntil, lastLoginAt *time.Time) error
}
