// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CredentialStore persists user identities with hashed passwords.
type CredentialStore struct {
	users  UserRepository
	hasher PasswordHasher
	policy PasswordPolicy
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(users UserRepository, hasher PasswordHasher, policy PasswordPolicy) (*CredentialStore, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if err := policy.Check(); err != nil {
		return nil, err
	}
	return &CredentialStore{users: users, hasher: hasher, policy: policy}, nil
}

// Create validates and stores a new user with a hashed password.
func (c *CredentialStore) Create(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := c.policy.Validate(password); err != nil {
		return nil, err
	}

	// The pre-check gives a clean error in the common case; the unique index
	// still decides races.
	_, err := c.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeDuplicateEmail).Errorf("email has to be unique")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code(CodeStorageFailure).With("operation", "get user by email").Wrap(err)
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(CodeStorageFailure).With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, err
	}

	if err := c.users.Create(ctx, user); err != nil {
		if hasCode(err, CodeDuplicateEmail) {
			return nil, err
		}
		return nil, oops.Code(CodeStorageFailure).With("operation", "insert user").Wrap(err)
	}
	return user, nil
}

// FindByEmail returns the user with the given email or an error wrapping ErrNotFound.
func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	//nolint:wrapcheck // repository errors carry their own codes
	return c.users.GetByEmail(ctx, email)
}

// FindByID returns the user with the given ID or an error wrapping ErrNotFound.
func (c *CredentialStore) FindByID(ctx context.Context, id ulid.ULID) (*User, error) {
	//nolint:wrapcheck // repository errors carry their own codes
	return c.users.GetByID(ctx, id)
}

// UpdatePassword re-hashes and stores a new password. The old password is
// not checked here.
func (c *CredentialStore) UpdatePassword(ctx context.Context, id ulid.ULID, password string) error {
	if err := c.policy.Validate(password); err != nil {
		return err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return oops.Code(CodeStorageFailure).With("operation", "hash password").Wrap(err)
	}

	if err := c.users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			// oops reports the innermost code, so a fresh error is needed to re-code.
			return oops.Code(CodeUserNotFound).With("user_id", id.String()).Errorf("user not found")
		}
		return oops.Code(CodeStorageFailure).
			With("operation", "update password").
			With("user_id", id.String()).
			Wrap(err)
	}
	return nil
}

// Policy returns the password policy passwords are checked against.
func (c *CredentialStore) Policy() PasswordPolicy {
	return c.policy
}

// VerifyPassword reports whether password matches the user's stored hash.
func (c *CredentialStore) VerifyPassword(user *User, password string) (bool, error) {
	//nolint:wrapcheck // hasher errors carry their own codes
	return c.hasher.Verify(password, user.PasswordHash)
}

// hasCode reports whether err is an oops error carrying code.
func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
