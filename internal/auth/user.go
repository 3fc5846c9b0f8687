// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the authorization level of a user.
type Role string

// Known roles. New users always get RoleUser.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PasswordPolicy bounds the length of account passwords.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy allows 6 to 20 characters.
var DefaultPasswordPolicy = PasswordPolicy{MinLength: 6, MaxLength: 20}

// Check reports whether the policy is usable. Reset mails a generated
// password, so the bounds must admit some length in
// [TempPasswordMinLength, TempPasswordMaxLength].
func (p PasswordPolicy) Check() error {
	if p.MinLength < 1 || p.MaxLength < p.MinLength {
		return oops.Code(CodePolicyInvalid).
			With("min", p.MinLength).
			With("max", p.MaxLength).
			Errorf("password length bounds must satisfy 1 <= min <= max")
	}
	if _, _, ok := p.temporaryLengths(); !ok {
		return oops.Code(CodePolicyInvalid).
			With("min", p.MinLength).
			With("max", p.MaxLength).
			Errorf("password length bounds must overlap %d-%d for temporary passwords",
				TempPasswordMinLength, TempPasswordMaxLength)
	}
	return nil
}

// temporaryLengths returns the temporary password lengths the policy admits.
func (p PasswordPolicy) temporaryLengths() (lo, hi int, ok bool) {
	lo = max(TempPasswordMinLength, p.MinLength)
	hi = min(TempPasswordMaxLength, p.MaxLength)
	return lo, hi, lo <= hi
}

// Validate checks a plaintext password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	n := len([]rune(password))
	if n < p.MinLength {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			With("min", p.MinLength).
			Errorf("password must be at least %d characters", p.MinLength)
	}
	if n > p.MaxLength {
		return oops.Code(CodeValidationFailed).
			With("field", "password").
			With("max", p.MaxLength).
			Errorf("password must be at most %d characters", p.MaxLength)
	}
	return nil
}

// User is an account that owns tasks.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with the default role.
// The email must already be syntactically valid and the hash non-empty.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidationFailed).Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEmail checks that email is a syntactically correct address.
// Emails are compared case-sensitively as stored.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeValidationFailed).With("field", "email").Errorf("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return oops.Code(CodeValidationFailed).With("field", "email").Errorf("invalid email")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an AUTH_DUPLICATE_EMAIL error if the
	// storage layer's uniqueness constraint rejects the email.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
