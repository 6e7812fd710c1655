// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"time"
)

// Lockout policy defaults.
const (
	// DefaultLockoutThreshold is the number of consecutive failures that
	// triggers a lockout.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is the time an account stays locked after the
	// threshold is reached.
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy decides how an account's failure history gates login
// attempts. The zero value is not usable; obtain one from
// DefaultLockoutPolicy or NewLockoutPolicy.
type LockoutPolicy struct {
	// Threshold is the failure count at which the account locks.
	Threshold int

	// Duration is how long a lockout lasts.
	Duration time.Duration
}

// DefaultLockoutPolicy returns the policy with documented defaults:
// 5 failures lock the account for 15 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}
}

// NewLockoutPolicy returns a policy with the given threshold and duration,
// substituting defaults for non-positive values.
func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	p := DefaultLockoutPolicy()
	if threshold > 0 {
		p.Threshold = threshold
	}
	if duration > 0 {
		p.Duration = duration
	}
	return p
}

// ComputeLockoutTime returns the lockout expiry for the given failure
// count, or nil if the count is below the threshold. The expiry is always
// in the future at the moment it is computed.
func (p LockoutPolicy) ComputeLockoutTime(failures int) *time.Time {
	if failures < p.Threshold {
		return nil
	}
	expiry := time.Now().Add(p.Duration)
	return &expiry
}

// IsLockedOut returns true if the lockout expiry is set and still in the
// future. A stale expiry (already passed) does not count as locked; the
// next attempt is evaluated as if the account were open.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(time.Now())
}

// LockoutRemaining returns the time until the lockout expires, or zero if
// the account is not locked.
func LockoutRemaining(lockedUntil *time.Time) time.Duration {
	if !IsLockedOut(lockedUntil) {
		return 0
	}
	return time.Until(*lockedUntil)
}
