// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides in-memory auth repositories and a recording
// notifier for tests.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/auth"
)

// UserRepository is a concurrency-safe in-memory auth.UserRepository.
// Create enforces email uniqueness under its lock, like a unique index.
type UserRepository struct {
	mu      sync.Mutex
	byID    map[ulid.ULID]auth.User
	byEmail map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return oops.Code(auth.CodeDuplicateEmail).With("email", user.Email).Errorf("email has to be unique")
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByID returns a copy of the user with id.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByEmail returns a copy of the user with email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	user := r.byID[id]
	return &user, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ResetTokenRepository is a concurrency-safe in-memory auth.ResetTokenRepository.
type ResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[ulid.ULID]auth.ResetToken
}

// NewResetTokenRepository creates an empty ResetTokenRepository.
func NewResetTokenRepository() *ResetTokenRepository {
	return &ResetTokenRepository{tokens: make(map[ulid.ULID]auth.ResetToken)}
}

// Create stores a copy of token.
func (r *ResetTokenRepository) Create(_ context.Context, token *auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.ID] = *token
	return nil
}

// ListByUser returns the user's tokens, newest first.
func (r *ResetTokenRepository) ListByUser(_ context.Context, userID ulid.ULID) ([]*auth.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*auth.ResetToken
	for _, token := range r.tokens {
		if token.UserID == userID {
			t := token
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a token; ErrNotFound if it is already gone.
func (r *ResetTokenRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[id]; !ok {
		return oops.Code("RESET_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.tokens, id)
	return nil
}

// DeleteCreatedBefore removes tokens created before cutoff.
func (r *ResetTokenRepository) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, token := range r.tokens {
		if token.CreatedAt.Before(cutoff) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored tokens.
func (r *ResetTokenRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// Has reports whether a token with id is stored.
func (r *ResetTokenRepository) Has(id ulid.ULID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[id]
	return ok
}

var (
	_ auth.UserRepository       = (*UserRepository)(nil)
	_ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
)
