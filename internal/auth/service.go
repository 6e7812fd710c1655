// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Compare-and-swap retry settings for lockout-state writes. Conflicts only
// happen when two attempts race on the same account, so a short constant
// backoff is enough.
const (
	casMaxRetries = 3
	casRetryDelay = 25 * time.Millisecond
)

// dummyPasswordHash is used when an account doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent.
// This is NOT a real credential - it's a fake hash that will never match any
// password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginResult is the payload of a successful login: the bearer token and
// the account's public profile.
type LoginResult struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// Service is the authentication engine. It orchestrates credential
// validation, the account store, the password hasher, the lockout policy,
// and the token issuer into register, login, and logout operations.
//
// The service is stateless per call; all shared mutable state lives in the
// AccountStore.
type Service struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   *TokenIssuer
	lockout  LockoutPolicy
	logger   *slog.Logger
}

// NewService creates a Service with the default logger.
func NewService(accounts AccountStore, hasher PasswordHasher, tokens *TokenIssuer, lockout LockoutPolicy) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, tokens, lockout, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(accounts AccountStore, hasher PasswordHasher, tokens *TokenIssuer, lockout LockoutPolicy, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if lockout.Threshold <= 0 || lockout.Duration <= 0 {
		return nil, oops.Errorf("lockout policy is required")
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		lockout:  lockout,
		logger:   logger,
	}, nil
}

// Register creates a new account. Checks run in a fixed order so a request
// violating several rules reports the first failure: username format, email
// format, username uniqueness, email uniqueness, password strength.
//
// Registration never returns a token; it does not imply login.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Profile, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "check username uniqueness").
			Wrap(err)
	}
	if taken {
		return nil, oops.Code("AUTH_DUPLICATE_USERNAME").
			With("username", username).
			Errorf("username already exists")
	}

	taken, err = s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "check email uniqueness").
			Wrap(err)
	}
	if taken {
		return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
			Errorf("email already exists")
	}

	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(username, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// A concurrent registration can slip between the uniqueness check
		// and the insert; the store reports that as a duplicate error.
		return nil, err
	}

	registrations.Inc()
	s.logger.Info("account registered", "username", username, "account_id", account.ID)

	profile := account.Profile()
	return &profile, nil
}

// Login authenticates an identifier (username or email) and password,
// returning a bearer token and public profile on success.
//
// An unknown identifier and a wrong password produce the identical
// AUTH_INVALID_CREDENTIALS failure so account existence does not leak. A
// locked account is reported as AUTH_ACCOUNT_LOCKED without re-verifying
// the password; confirming the lockout is an accepted information leak,
// trading secrecy for user feedback.
//
// Counter and lockout writes are committed before the error returns; failed
// attempts are never lost to best-effort persistence.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Still burn a verification against a fake digest so unknown
			// identifiers take as long as wrong passwords.
			_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing defense only
			recordLoginAttempt(loginResultInvalidCredentials)
			return nil, invalidCredentials()
		}
		recordLoginAttempt(loginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by identifier").
			Wrap(err)
	}

	// A live lockout rejects the attempt before any hash verification: no
	// wasted work, and the lockout window is not extended.
	if account.IsLocked() {
		recordLoginAttempt(loginResultLocked)
		return nil, accountLocked(account.LockedUntil)
	}

	valid, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		recordLoginAttempt(loginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}

	if !valid {
		locked, recordErr := s.recordFailure(ctx, account)
		if recordErr != nil {
			recordLoginAttempt(loginResultError)
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "record failed attempt").
				Wrap(recordErr)
		}
		if locked {
			lockoutsTriggered.Inc()
			recordLoginAttempt(loginResultLocked)
			s.logger.Warn("account locked after repeated failures",
				"account_id", account.ID,
				"failed_attempts", account.FailedAttempts)
			return nil, accountLocked(account.LockedUntil)
		}
		recordLoginAttempt(loginResultInvalidCredentials)
		return nil, invalidCredentials()
	}

	if err := s.recordSuccess(ctx, account); err != nil {
		recordLoginAttempt(loginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "record successful login").
			Wrap(err)
	}

	s.maybeUpgradeHash(ctx, account, password)

	token, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		recordLoginAttempt(loginResultError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	recordLoginAttempt(loginResultSuccess)
	s.logger.Info("login succeeded", "account_id", account.ID)

	return &LoginResult{Token: token, Profile: account.Profile()}, nil
}

// Logout verifies the presented token. There is no server-side session or
// denylist, so a valid token stays usable until it expires: logout is a
// validation no-op, a documented limitation of the stateless token design.
// Clients clear their stored token regardless of the result.
func (s *Service) Logout(_ context.Context, token string) error {
	if _, err := s.tokens.Verify(token); err != nil {
		return err
	}
	return nil
}

// Profile returns the full profile of the account the token identifies.
func (s *Service) Profile(ctx context.Context, token string) (*Profile, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByUsername(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").
				Errorf("account not found")
		}
		return nil, oops.Code("AUTH_PROFILE_FAILED").
			With("operation", "get account by username").
			Wrap(err)
	}

	profile := account.Profile()
	return &profile, nil
}

// UpdateEmail changes the email of the account the token identifies. Email
// is the only profile field an owner may update; username is immutable
// after creation.
func (s *Service) UpdateEmail(ctx context.Context, token, email string) (*Profile, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByUsername(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").
				Errorf("account not found")
		}
		return nil, oops.Code("AUTH_PROFILE_FAILED").
			With("operation", "get account by username").
			Wrap(err)
	}

	if email != account.Email {
		taken, err := s.accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, oops.Code("AUTH_PROFILE_FAILED").
				With("operation", "check email uniqueness").
				Wrap(err)
		}
		if taken {
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
				Errorf("email already exists")
		}

		account.Email = email
		account.UpdatedAt = time.Now()
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	profile := account.Profile()
	return &profile, nil
}

// recordFailure applies the lockout policy for a wrong password and commits
// it through the store's compare-and-swap contract. On conflict the account
// is re-read and the policy re-applied, so concurrent failures on one
// account never lose an increment. Returns whether the account ended up
// locked.
func (s *Service) recordFailure(ctx context.Context, account *Account) (bool, error) {
	alreadyLocked := false

	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewConstant(casRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		// A racing attempt may have locked the account; its state stands
		// and our increment is subsumed by the lockout.
		if account.IsLocked() {
			alreadyLocked = true
			return nil
		}

		next := *account
		next.RecordFailure(s.lockout)

		updateErr := s.accounts.UpdateLoginState(ctx, account.ID,
			account.FailedAttempts, next.FailedAttempts, next.LockedUntil, nil)
		if errors.Is(updateErr, ErrStaleAccount) {
			fresh, getErr := s.accounts.GetByUsername(ctx, account.Username)
			if getErr != nil {
				return getErr
			}
			*account = *fresh
			return retry.RetryableError(updateErr)
		}
		if updateErr != nil {
			return updateErr
		}

		*account = next
		return nil
	})
	if err != nil {
		return false, err
	}
	return alreadyLocked || account.IsLocked(), nil
}

// recordSuccess resets the failure state and stamps the last login,
// committed through the same compare-and-swap contract as failures.
func (s *Service) recordSuccess(ctx context.Context, account *Account) error {
	backoff := retry.WithMaxRetries(casMaxRetries, retry.NewConstant(casRetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		next := *account
		next.RecordSuccess()

		updateErr := s.accounts.UpdateLoginState(ctx, account.ID,
			account.FailedAttempts, next.FailedAttempts, next.LockedUntil, next.LastLoginAt)
		if errors.Is(updateErr, ErrStaleAccount) {
			fresh, getErr := s.accounts.GetByUsername(ctx, account.Username)
			if getErr != nil {
				return getErr
			}
			*account = *fresh
			return retry.RetryableError(updateErr)
		}
		if updateErr != nil {
			return updateErr
		}

		*account = next
		return nil
	})
}

// maybeUpgradeHash rehashes the password after a successful login when the
// stored digest uses weaker parameters. Best effort: login succeeds even if
// the upgrade write fails.
func (s *Service) maybeUpgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		return
	}
	account.PasswordHash = newHash
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger.Warn("password hash upgrade failed", "account_id", account.ID)
	}
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
}

func accountLocked(lockedUntil *time.Time) error {
	return oops.Code("AUTH_ACCOUNT_LOCKED").
		With("locked_until", lockedUntil).
		Errorf("account is locked, try again later")
}
