// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/holomush/tasklist/internal/store"
)

// ResetTokenRepository implements auth.ResetTokenRepository using PostgreSQL.
type ResetTokenRepository struct {
	pool store.Querier
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(pool store.Querier) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Create stores a new reset token.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reset_tokens (id, user_id, token_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID.String(), token.UserID.String(), token.TokenHash, token.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return nil
}

// ListByUser returns a user's outstanding tokens, newest first.
func (r *ResetTokenRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*auth.ResetToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, token_hash, created_at
		FROM reset_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").
			With("operation", "list reset tokens").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var tokens []*auth.ResetToken
	for rows.Next() {
		var (
			idStr, userIDStr string
			token            auth.ResetToken
		)
		if err := rows.Scan(&idStr, &userIDStr, &token.TokenHash, &token.CreatedAt); err != nil {
			return nil, oops.Code("RESET_SCAN_FAILED").With("operation", "scan reset token").Wrap(err)
		}
		if token.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
		}
		if token.UserID, err = ulid.Parse(userIDStr); err != nil {
			return nil, oops.Code("RESET_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
		}
		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").With("operation", "iterate reset tokens").Wrap(err)
	}
	return tokens, nil
}

// Delete removes a token. Of several concurrent deletes of the same row only
// one sees a row affected; the rest get ErrNotFound.
func (r *ResetTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete reset token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(auth.CodeResetTokenNotFound).With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteCreatedBefore removes tokens created before cutoff.
func (r *ResetTokenRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
