// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

// Package auth implements the authentication decision engine.
//
// # Domain Types
//
// Account is the durable identity record. Accounts should be created with
// NewAccount, which validates the username and email and initializes the
// security-state fields (failed-attempt counter, lockout expiry). Direct
// struct initialization bypasses validation and may create invalid state.
//
// # Components
//
//   - Credential validation: ValidateUsername, ValidateEmail,
//     ValidatePasswordStrength - pure format checks with fixed, testable
//     patterns.
//   - Argon2idHasher - salted, work-factor-tunable password hashing with
//     constant-time verification.
//   - LockoutPolicy - the failed-attempt state machine (threshold and
//     lockout duration are configuration, not magic numbers in callers).
//   - TokenIssuer - signed, time-bound bearer tokens (HS256 JWT).
//   - Service - orchestrates the above into Register, Login, Logout and
//     the bearer-protected profile operations.
//
// The engine is stateless per call; the AccountStore is the single shared
// mutable resource and must provide per-account compare-and-swap semantics
// for lockout mutations (see AccountStore.UpdateLoginState).
package auth
