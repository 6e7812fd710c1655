// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentuma/authcore/pkg/errutil"
)

// testArgon2Params keeps hashing cheap in tests. Production defaults are
// pinned separately in TestDefaultArgon2Params.
func testArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	}
}

func TestDefaultArgon2Params(t *testing.T) {
	params := DefaultArgon2Params()

	assert.Equal(t, uint32(1), params.Time)
	assert.Equal(t, uint32(64*1024), params.Memory)
	assert.Equal(t, uint8(4), params.Threads)
	assert.Equal(t, uint32(16), params.SaltLen)
	assert.Equal(t, uint32(32), params.KeyLen)
}

func TestArgon2idHasherHashAndVerify(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params())

	hash, err := hasher.Hash("Str0ng!Pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	valid, err := hasher.Verify("Str0ng!Pw", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = hasher.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestArgon2idHasherSaltsAreUnique(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params())

	first, err := hasher.Hash("Str0ng!Pw")
	require.NoError(t, err)
	second, err := hasher.Hash("Str0ng!Pw")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same password must produce different digests")

	// Both still verify.
	for _, hash := range []string{first, second} {
		valid, err := hasher.Verify("Str0ng!Pw", hash)
		require.NoError(t, err)
		assert.True(t, valid)
	}
}

func TestArgon2idHasherEmptyPassword(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params())

	_, err := hasher.Hash("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestArgon2idHasherVerifyMalformedHash(t *testing.T) {
	hasher := NewArgon2idHasher(testArgon2Params())

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "not a phc string", hash: "plainly-not-a-hash"},
		{name: "wrong algorithm", hash: "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA"},
		{name: "missing segments", hash: "$argon2id$v=19$m=8192,t=1"},
		{name: "bad base64 salt", hash: "$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Verify("Str0ng!Pw", tt.hash)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
		})
	}
}

func TestArgon2idHasherVerifyForeignParams(t *testing.T) {
	// Digest written with different parameters than the verifier's own must
	// still verify; parameters come from the stored digest.
	writer := NewArgon2idHasher(Argon2Params{Time: 2, Memory: 16 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	reader := NewArgon2idHasher(testArgon2Params())

	hash, err := writer.Hash("Str0ng!Pw")
	require.NoError(t, err)

	valid, err := reader.Verify("Str0ng!Pw", hash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestArgon2idHasherNeedsUpgrade(t *testing.T) {
	hasher := NewArgon2idHasher(DefaultArgon2Params())

	weak := NewArgon2idHasher(testArgon2Params())
	weakHash, err := weak.Hash("Str0ng!Pw")
	require.NoError(t, err)

	strongHash, err := hasher.Hash("Str0ng!Pw")
	require.NoError(t, err)

	assert.True(t, hasher.NeedsUpgrade(weakHash), "lower memory cost must trigger upgrade")
	assert.False(t, hasher.NeedsUpgrade(strongHash))
	assert.True(t, hasher.NeedsUpgrade("not-argon2id-at-all"))
}

func TestNewArgon2idHasherFillsZeroParams(t *testing.T) {
	hasher := NewArgon2idHasher(Argon2Params{})

	hash, err := hasher.Hash("Str0ng!Pw")
	require.NoError(t, err)

	valid, err := hasher.Verify("Str0ng!Pw", hash)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}
