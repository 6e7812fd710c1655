// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleAccount is returned by AccountStore.UpdateLoginState when the
// guarded failed-attempt count no longer matches the stored row. Callers
// should re-read the account and re-apply the lockout policy.
var ErrStaleAccount = errors.New("stale account state")
