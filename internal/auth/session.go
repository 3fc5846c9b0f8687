// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// SessionTokenService issues and verifies signed, time-limited session
// tokens. Tokens are stateless: nothing is persisted and there is no
// server-side revocation, so a token stays valid until it expires.
type SessionTokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// SessionOption configures a SessionTokenService.
type SessionOption func(*SessionTokenService)

// WithSessionClock overrides the time source used for iat/exp.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionTokenService) {
		s.now = now
	}
}

// NewSessionTokenService creates a SessionTokenService signing with secret.
func NewSessionTokenService(secret string, expiry time.Duration, opts ...SessionOption) (*SessionTokenService, error) {
	if secret == "" {
		return nil, oops.Code("SESSION_CONFIG_INVALID").Errorf("session secret is required")
	}
	if expiry <= 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").
			With("expiry", expiry.String()).
			Errorf("session expiry must be positive")
	}

	s := &SessionTokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Expiry returns the configured session lifetime.
func (s *SessionTokenService) Expiry() time.Duration {
	return s.expiry
}

// Issue signs a token for userID. Returns the token and its expiry time.
func (s *SessionTokenService) Issue(userID ulid.ULID) (string, time.Time, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return "", time.Time{}, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		ID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a token and returns its subject.
//
// An empty token yields SESSION_MISSING. A token that is present but unusable
// yields SESSION_EXPIRED, SESSION_BAD_SIGNATURE or SESSION_MALFORMED.
func (s *SessionTokenService) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code(CodeSessionMissing).Errorf("you are unauthorized")
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return ulid.ULID{}, oops.Code(CodeSessionExpired).Errorf("session has expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ulid.ULID{}, oops.Code(CodeSessionBadSignature).Errorf("invalid token")
	default:
		return ulid.ULID{}, oops.Code(CodeSessionMalformed).Errorf("invalid token structure")
	}

	userID, err := ulid.Parse(claims.ID)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeSessionMalformed).Errorf("invalid token structure")
	}
	return userID, nil
}
