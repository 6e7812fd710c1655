// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id work-factor parameters. Defaults follow the
// OWASP recommendation; raise Memory/Time to slow attackers, at the cost of
// login latency.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024, // 64 MB
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
// Implementations never log or return the plaintext or digest outward.
type PasswordHasher interface {
	// Hash produces a salted, irreversible digest of the password. Each
	// call uses a fresh random salt, so two hashes of the same password
	// differ.
	Hash(password string) (string, error)

	// Verify checks if the password matches the digest in constant time
	// with respect to digest content.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on
	// an invalid digest.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the digest was produced with weaker
	// parameters (or another algorithm) and should be recomputed.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with the given work factors,
// substituting defaults for zero values.
func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	def := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	if params.SaltLen == 0 {
		params.SaltLen = def.SaltLen
	}
	if params.KeyLen == 0 {
		params.KeyLen = def.KeyLen
	}
	return &Argon2idHasher{params: params}
}

// Hash produces an argon2id digest of the password in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	digest := argon2.IDKey([]byte(password), salt,
		h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify checks if the password matches the encoded digest. The digest's
// own parameters are used for recomputation so hashes survive parameter
// changes; comparison is constant-time.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// Threads must fit in uint8 to prevent silent truncation.
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return true, nil
	}

	return false, nil
}

// NeedsUpgrade returns true if the digest is not argon2id or was produced
// with weaker work factors than currently configured.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	if !strings.HasPrefix(hash, "$argon2id$") {
		return true
	}
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return true
	}
	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return true
	}
	return memory < h.params.Memory || time < h.params.Time
}
