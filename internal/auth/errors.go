// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes surfaced to the boundary layer. Every error returned by the
// Service carries exactly one of these codes; anything else is a storage or
// infrastructure failure.
const (
	CodeValidationFailed      = "AUTH_VALIDATION_FAILED"
	CodeMissingFields         = "AUTH_MISSING_FIELDS"
	CodePasswordMismatch      = "AUTH_PASSWORD_MISMATCH"
	CodeDuplicateEmail        = "AUTH_DUPLICATE_EMAIL"
	CodeIncorrectEmail        = "AUTH_INCORRECT_EMAIL"
	CodeIncorrectPassword     = "AUTH_INCORRECT_PASSWORD"
	CodeUserNotFound          = "AUTH_USER_NOT_FOUND"
	CodeInvalidPassword       = "AUTH_INVALID_PASSWORD"
	CodeInvalidOrExpiredToken = "AUTH_INVALID_OR_EXPIRED_TOKEN"
	CodeNotAuthorized         = "AUTH_NOT_AUTHORIZED"
	CodeDeliveryFailed        = "AUTH_DELIVERY_FAILED"
	CodeStorageFailure        = "AUTH_STORAGE_FAILURE"
	CodePolicyInvalid         = "AUTH_POLICY_INVALID"

	CodeSessionMissing      = "SESSION_MISSING"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeSessionMalformed    = "SESSION_MALFORMED"
	CodeSessionBadSignature = "SESSION_BAD_SIGNATURE"

	CodeResetTokenNotFound = "RESET_TOKEN_NOT_FOUND"
	CodeResetTokenExpired  = "RESET_TOKEN_EXPIRED"
	CodeResetTokenMismatch = "RESET_TOKEN_MISMATCH"
)
