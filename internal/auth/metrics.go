// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the authentication engine.
var (
	// loginAttempts counts login attempts by outcome.
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// lockoutsTriggered counts accounts transitioning into the locked state.
	lockoutsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_lockouts_total",
		Help: "Total number of account lockouts triggered",
	})

	// registrations counts successful account registrations.
	registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_registrations_total",
		Help: "Total number of successful registrations",
	})
)

// Login attempt outcome labels.
const (
	loginResultSuccess            = "success"
	loginResultInvalidCredentials = "invalid_credentials"
	loginResultLocked             = "locked"
	loginResultError              = "error"
)

func recordLoginAttempt(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
