// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Operation names used as metric labels.
const (
	OpSignup         = "signup"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpForgotPassword = "forgot_password"
	OpResetPassword  = "reset_password"
	OpUpdatePassword = "update_password"
	OpAuthenticate   = "authenticate"
)

// OutcomeSuccess labels a successful operation. Failures are labelled with
// their error code.
const OutcomeSuccess = "success"

// Operations counts auth operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasklist_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// ResetTokensPurged counts reset tokens removed by the sweeper.
var ResetTokensPurged = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "tasklist_reset_tokens_purged_total",
		Help: "Total number of expired reset tokens removed by the sweeper",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(ResetTokensPurged)
}

// recordOperation increments the operation counter for err's outcome.
func recordOperation(op string, err error) {
	Operations.WithLabelValues(op, outcomeOf(err)).Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			return code
		}
	}
	return "error"
}
