// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

// Package memory provides an in-memory auth.AccountStore for tests and
// single-process development runs.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/rentuma/authcore/internal/auth"
)

// Store implements auth.AccountStore with a mutex-protected map. Lookups
// are case-insensitive, matching the PostgreSQL implementation. The mutex
// gives the per-account read-modify-write atomicity the engine's lockout
// updates rely on.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*auth.Account
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		nextID:   1,
		accounts: make(map[int64]*auth.Account),
	}
}

// Create stores a new account and assigns its ID.
func (s *Store) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, account.Username) {
			return oops.Code("AUTH_DUPLICATE_USERNAME").
				With("username", account.Username).
				Errorf("username already exists")
		}
		if strings.EqualFold(existing.Email, account.Email) {
			return oops.Code("AUTH_DUPLICATE_EMAIL").
				Errorf("email already exists")
		}
	}

	account.ID = s.nextID
	s.nextID++

	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (s *Store) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if strings.EqualFold(account.Username, username) {
			clone := *account
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *Store) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) {
			clone := *account
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByIdentifier retrieves an account by username, falling back to email.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*auth.Account, error) {
	account, err := s.GetByUsername(ctx, identifier)
	if err == nil {
		return account, nil
	}
	return s.GetByEmail(ctx, identifier)
}

// ExistsByUsername reports whether an account with the username exists.
func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// ExistsByEmail reports whether an account with the email exists.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// Update persists all mutable fields of an existing account.
func (s *Store) Update(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return auth.ErrNotFound
	}

	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

// UpdateLoginState atomically writes the lockout fields, guarded by the
// expected failed-attempt count.
func (s *Store) UpdateLoginState(_ context.Context, id int64, expectedFailures, failures int, lockedUntil, lastLoginAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	if account.FailedAttempts != expectedFailures {
		return auth.ErrStaleAccount
	}

	account.FailedAttempts = failures
	account.LockedUntil = lockedUntil
	if lastLoginAt != nil {
		account.LastLoginAt = lastLoginAt
	}
	account.UpdatedAt = time.Now()
	return nil
}
