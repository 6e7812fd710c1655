// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLockoutPolicy(t *testing.T) {
	policy := DefaultLockoutPolicy()

	assert.Equal(t, 5, policy.Threshold)
	assert.Equal(t, 15*time.Minute, policy.Duration)
}

func TestNewLockoutPolicy(t *testing.T) {
	tests := []struct {
		name         string
		threshold    int
		duration     time.Duration
		wantThresh   int
		wantDuration time.Duration
	}{
		{name: "explicit values", threshold: 3, duration: time.Hour, wantThresh: 3, wantDuration: time.Hour},
		{name: "zero threshold falls back", threshold: 0, duration: time.Hour, wantThresh: 5, wantDuration: time.Hour},
		{name: "zero duration falls back", threshold: 3, duration: 0, wantThresh: 3, wantDuration: 15 * time.Minute},
		{name: "negative values fall back", threshold: -1, duration: -time.Minute, wantThresh: 5, wantDuration: 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewLockoutPolicy(tt.threshold, tt.duration)
			assert.Equal(t, tt.wantThresh, policy.Threshold)
			assert.Equal(t, tt.wantDuration, policy.Duration)
		})
	}
}

func TestComputeLockoutTime(t *testing.T) {
	policy := DefaultLockoutPolicy()

	t.Run("below threshold", func(t *testing.T) {
		for failures := 0; failures < policy.Threshold; failures++ {
			assert.Nil(t, policy.ComputeLockoutTime(failures), "failures=%d", failures)
		}
	})

	t.Run("at threshold", func(t *testing.T) {
		before := time.Now()
		expiry := policy.ComputeLockoutTime(policy.Threshold)
		require.NotNil(t, expiry)

		assert.True(t, expiry.After(before), "expiry must be in the future")
		assert.WithinDuration(t, before.Add(policy.Duration), *expiry, time.Second)
	})

	t.Run("above threshold", func(t *testing.T) {
		expiry := policy.ComputeLockoutTime(policy.Threshold + 3)
		require.NotNil(t, expiry)
		assert.True(t, expiry.After(time.Now()))
	})
}

func TestIsLockedOut(t *testing.T) {
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Minute)

	assert.False(t, IsLockedOut(nil))
	assert.True(t, IsLockedOut(&future))
	assert.False(t, IsLockedOut(&past), "expired lockout must not count as locked")
}

func TestLockoutRemaining(t *testing.T) {
	t.Run("not locked", func(t *testing.T) {
		assert.Zero(t, LockoutRemaining(nil))

		past := time.Now().Add(-time.Minute)
		assert.Zero(t, LockoutRemaining(&past))
	})

	t.Run("locked", func(t *testing.T) {
		future := time.Now().Add(10 * time.Minute)
		remaining := LockoutRemaining(&future)
		assert.Greater(t, remaining, 9*time.Minute)
		assert.LessOrEqual(t, remaining, 10*time.Minute)
	})
}
