// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ResetSecretBytes is the entropy of a reset secret: 32 bytes = 64 hex chars.
const ResetSecretBytes = 32

// ResetToken is one outstanding password-reset request. Only the hash of
// the secret is stored; the plaintext goes to the user once.
type ResetToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	CreatedAt time.Time
}

// NewResetToken creates a validated ResetToken.
func NewResetToken(userID ulid.ULID, tokenHash string, createdAt time.Time) (*ResetToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if createdAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_CREATED_AT").Errorf("created at cannot be zero")
	}
	return &ResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt returns true if more than ttl has elapsed since creation at t.
func (r *ResetToken) IsExpiredAt(t time.Time, ttl time.Duration) bool {
	return t.Sub(r.CreatedAt) > ttl
}

// GenerateResetSecret returns a hex-encoded random secret with
// ResetSecretBytes of entropy.
func GenerateResetSecret() (string, error) {
	b := make([]byte, ResetSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("requested_bytes", ResetSecretBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// ResetTokenRepository manages reset token persistence.
type ResetTokenRepository interface {
	// Create stores a new reset token.
	Create(ctx context.Context, token *ResetToken) error

	// ListByUser returns all outstanding tokens for a user, newest first.
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*ResetToken, error)

	// Delete removes a token. Returns ErrNotFound if no row was deleted, which
	// is how concurrent consumers of the same token lose the race.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteCreatedBefore removes tokens created before cutoff and returns
	// the count.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenStore issues and consumes single-use reset tokens.
type ResetTokenStore struct {
	repo   ResetTokenRepository
	hasher PasswordHasher
	ttl    time.Duration
	now    func() time.Time
}

// ResetOption configures a ResetTokenStore.
type ResetOption func(*ResetTokenStore)

// WithResetClock overrides the time source used for creation and expiry.
func WithResetClock(now func() time.Time) ResetOption {
	return func(s *ResetTokenStore) {
		s.now = now
	}
}

// NewResetTokenStore creates a ResetTokenStore whose tokens live for ttl.
func NewResetTokenStore(repo ResetTokenRepository, hasher PasswordHasher, ttl time.Duration, opts ...ResetOption) (*ResetTokenStore, error) {
	if repo == nil {
		return nil, oops.Errorf("reset repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if ttl <= 0 {
		return nil, oops.With("ttl", ttl.String()).Errorf("reset token TTL must be positive")
	}

	s := &ResetTokenStore{repo: repo, hasher: hasher, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a token for userID and returns the plaintext secret for
// one-time delivery along with the stored record.
func (s *ResetTokenStore) Issue(ctx context.Context, userID ulid.ULID) (string, *ResetToken, error) {
	secret, err := GenerateResetSecret()
	if err != nil {
		return "", nil, err
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", nil, oops.Code("RESET_ISSUE_FAILED").With("operation", "hash secret").Wrap(err)
	}

	token, err := NewResetToken(userID, hash, s.now().UTC())
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return "", nil, oops.Code("RESET_ISSUE_FAILED").
			With("operation", "create reset token").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return secret, token, nil
}

// Consume verifies secret against the user's outstanding tokens and deletes
// the matching one.
//
// Stale tokens are deleted when seen and never compared. A mismatch leaves
// every token in place so a typo does not burn a legitimate reset.
func (s *ResetTokenStore) Consume(ctx context.Context, userID ulid.ULID, secret string) error {
	tokens, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "list reset tokens").
			With("user_id", userID.String()).
			Wrap(err)
	}

	now := s.now()
	var sawExpired, compared bool
	for _, token := range tokens {
		if token.IsExpiredAt(now, s.ttl) {
			sawExpired = true
			if err := s.repo.Delete(ctx, token.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return oops.Code("RESET_CONSUME_FAILED").
					With("operation", "delete stale reset token").
					With("token_id", token.ID.String()).
					Wrap(err)
			}
			continue
		}

		if secret == "" {
			compared = true
			continue
		}

		ok, err := s.hasher.Verify(secret, token.TokenHash)
		if err != nil {
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "verify reset secret").
				With("token_id", token.ID.String()).
				Wrap(err)
		}
		compared = true
		if !ok {
			continue
		}

		if err := s.repo.Delete(ctx, token.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code(CodeResetTokenNotFound).Errorf("reset token already used")
			}
			return oops.Code("RESET_CONSUME_FAILED").
				With("operation", "delete consumed reset token").
				With("token_id", token.ID.String()).
				Wrap(err)
		}
		return nil
	}

	switch {
	case compared:
		return oops.Code(CodeResetTokenMismatch).Errorf("reset token does not match")
	case sawExpired:
		return oops.Code(CodeResetTokenExpired).Errorf("reset token has expired")
	default:
		return oops.Code(CodeResetTokenNotFound).Errorf("reset token not found")
	}
}

// Revoke deletes a single token, e.g. when its delivery failed.
func (s *ResetTokenStore) Revoke(ctx context.Context, id ulid.ULID) error {
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("RESET_REVOKE_FAILED").With("token_id", id.String()).Wrap(err)
	}
	return nil
}

// PurgeExpired deletes every token older than the TTL.
func (s *ResetTokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteCreatedBefore(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").Wrap(err)
	}
	ResetTokensPurged.Add(float64(n))
	return n, nil
}
