// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the credential lifecycle of the task list service.
//
// # Components
//
//   - CredentialStore - users with argon2id password hashes, unique emails
//   - SessionTokenService - stateless HS256 session tokens
//   - ResetTokenStore - single-use reset tokens, hashed at rest, with a TTL
//   - Service - signup, login, logout, forgot/reset/update password
//
// Persistence goes through UserRepository and ResetTokenRepository; see the
// postgres subpackage for the production implementations and authtest for
// in-memory ones.
//
// # Errors
//
// Every failure carries an oops code (the Code* constants). The HTTP layer
// maps codes to responses; unknown codes are storage failures.
package auth
