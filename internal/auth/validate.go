// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// Username constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// PasswordSymbols is the fixed set of accepted special characters. The set
// is a contract: tests pin it, so widening it is a behavior change.
const PasswordSymbols = "@$!%*?&"

// usernameRegex matches 3-20 characters of letters, digits, and underscores.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// emailRegex is a permissive local@domain shape: the local part is limited
// to a safe character set, the domain only has to be non-empty.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@.+$`)

// ValidateUsername checks the username format rule. Pure; no side effects.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_FORMAT").
			With("field", "username").
			Errorf("username must be %d-%d characters, alphanumeric and underscore only",
				MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// ValidateEmail checks the email format rule. Pure; no side effects.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_FORMAT").
			With("field", "email").
			Errorf("invalid email format")
	}
	return nil
}

// ValidatePasswordStrength checks the password strength rule: at least
// MinPasswordLength characters with at least one lowercase letter, one
// uppercase letter, one digit, and one symbol from PasswordSymbols.
// The rejected password is never included in the error.
func ValidatePasswordStrength(password string) error {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	if len(password) < MinPasswordLength || !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return oops.Code("AUTH_WEAK_PASSWORD").
			Errorf("password must be at least %d characters with uppercase, lowercase, number, and special character (%s)",
				MinPasswordLength, PasswordSymbols)
	}
	return nil
}
