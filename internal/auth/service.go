// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/pkg/errutil"
)

// Email subjects.
const (
	SubjectResetRequested = "Reset Password"
	SubjectResetCompleted = "Password Reset Successfully"
)

// SessionResult is returned by signup and login.
type SessionResult struct {
	UserID    ulid.ULID
	Token     string
	ExpiresAt time.Time
}

// Service sequences the credential components into the user-facing auth
// flows. It holds no state of its own.
type Service struct {
	credentials *CredentialStore
	sessions    *SessionTokenService
	resets      *ResetTokenStore
	notifier    Notifier
	publicURL   string
	logger      *slog.Logger
	dummyHash   string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service. publicURL is the externally reachable base
// URL used to build the links sent by email.
func NewService(
	credentials *CredentialStore,
	sessions *SessionTokenService,
	resets *ResetTokenStore,
	notifier Notifier,
	publicURL string,
	opts ...ServiceOption,
) (*Service, error) {
	if credentials == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session token service is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset token store is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if publicURL == "" {
		return nil, oops.Errorf("public URL is required")
	}

	// A hash with the same cost as real ones keeps login timing flat for
	// unknown emails. It is never stored and matches nothing.
	secret, err := GenerateResetSecret()
	if err != nil {
		return nil, err
	}
	dummyHash, err := credentials.hasher.Hash(secret)
	if err != nil {
		return nil, oops.With("operation", "hash dummy secret").Wrap(err)
	}

	s := &Service{
		credentials: credentials,
		sessions:    sessions,
		resets:      resets,
		notifier:    notifier,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      slog.Default(),
		dummyHash:   dummyHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup creates an account and opens a session for it.
func (s *Service) Signup(ctx context.Context, email, password, confirmation string) (result *SessionResult, err error) {
	defer func() { recordOperation(OpSignup, err) }()

	if password != confirmation {
		return nil, oops.Code(CodePasswordMismatch).Errorf("password and password confirmation do not match")
	}

	user, err := s.credentials.Create(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.openSession(user.ID)
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (result *SessionResult, err error) {
	defer func() { recordOperation(OpLogin, err) }()

	if email == "" || password == "" {
		return nil, oops.Code(CodeMissingFields).Errorf("'email' and 'password' fields can not be empty")
	}

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeStorageFailure).With("operation", "get user by email").Wrap(err)
		}
		// Burn the same hashing cost as a real check.
		_, _ = s.credentials.hasher.Verify(password, s.dummyHash) //nolint:errcheck // result is irrelevant
		return nil, oops.Code(CodeIncorrectEmail).Errorf("incorrect email")
	}

	valid, err := s.credentials.VerifyPassword(user, password)
	if err != nil {
		return nil, oops.Code(CodeStorageFailure).
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return nil, oops.Code(CodeIncorrectPassword).Errorf("incorrect password")
	}

	if s.credentials.hasher.NeedsUpgrade(user.PasswordHash) {
		if upErr := s.credentials.UpdatePassword(ctx, user.ID, password); upErr != nil {
			s.logger.WarnContext(ctx, "best-effort password rehash failed",
				"operation", "rehash_password",
				"user_id", user.ID.String(),
				"error", upErr.Error())
		}
	}

	return s.openSession(user.ID)
}

// Logout changes no server state. Sessions are stateless, so the caller
// discards its credential and any copy stays valid until it expires.
func (s *Service) Logout(ctx context.Context) {
	recordOperation(OpLogout, nil)
	s.logger.DebugContext(ctx, "session discarded by client")
}

// ForgotPassword issues a reset token for email and mails a link carrying
// the plaintext secret. If the mail was definitely not sent the token is
// revoked. If the outcome is unknown the token is kept until it expires.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { recordOperation(OpForgotPassword, err) }()

	if email == "" {
		return oops.Code(CodeMissingFields).Errorf("'email' field can not be empty")
	}

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).Errorf("user with such email is not found")
		}
		return oops.Code(CodeStorageFailure).With("operation", "get user by email").Wrap(err)
	}

	secret, token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	link := s.link("/api/v1/reset-password", url.Values{
		"token": {secret},
		"id":    {user.ID.String()},
	})
	body := fmt.Sprintf("Hi!\nYou requested to reset your password.\n"+
		"Please click the link below to reset your password.\n%s\n", link)

	if sendErr := s.notifier.Send(ctx, user.Email, SubjectResetRequested, body); sendErr != nil {
		switch {
		case errors.Is(sendErr, ErrDeliveryUnknown):
			// The link may still arrive; leave its token to expire.
			s.logger.WarnContext(ctx, "reset link delivery outcome unknown, keeping token",
				"user_id", user.ID.String(),
				"token_id", token.ID.String())
		default:
			if revokeErr := s.resets.Revoke(ctx, token.ID); revokeErr != nil {
				errutil.LogError(s.logger, "failed to revoke undelivered reset token", revokeErr)
			}
		}
		return oops.Code(CodeDeliveryFailed).
			With("operation", "send reset link").
			With("user_id", user.ID.String()).
			Errorf("email message was not sent, please try again: %v", sendErr)
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the password with a random
// temporary one and mails it to the user.
//
// The temporary password is generated and checked against the policy before
// the token is consumed. The token is consumed and the password changed
// before the mail is sent.
// A failed send is reported but not rolled back, and the temporary password
// never appears in the error.
func (s *Service) ResetPassword(ctx context.Context, secret, userID string) (err error) {
	defer func() { recordOperation(OpResetPassword, err) }()

	id, parseErr := ulid.Parse(userID)
	if secret == "" || parseErr != nil {
		return errInvalidOrExpiredToken()
	}

	// Everything that can fail without touching storage runs before the
	// token is consumed, so a failure here leaves the link usable.
	temp, err := GenerateTemporaryPassword(s.credentials.Policy())
	if err != nil {
		return err
	}
	if err := s.credentials.Policy().Validate(temp); err != nil {
		return oops.Code(CodePolicyInvalid).
			With("operation", "check temporary password").
			Errorf("temporary password violates policy: %v", err)
	}

	if err := s.resets.Consume(ctx, id, secret); err != nil {
		if hasCode(err, CodeResetTokenNotFound) || hasCode(err, CodeResetTokenExpired) || hasCode(err, CodeResetTokenMismatch) {
			return errInvalidOrExpiredToken()
		}
		return err
	}

	if err := s.credentials.UpdatePassword(ctx, id, temp); err != nil {
		return err
	}

	user, err := s.credentials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).Errorf("no such user found")
		}
		return oops.Code(CodeStorageFailure).With("operation", "get user by id").Wrap(err)
	}

	link := s.link("/api/v1/update-password", nil)
	body := fmt.Sprintf("This is your temporary password: %s\nTo change it go to %s\n", temp, link)

	if sendErr := s.notifier.Send(ctx, user.Email, SubjectResetCompleted, body); sendErr != nil {
		s.logger.ErrorContext(ctx, "password was reset but the notification failed",
			"user_id", user.ID.String(),
			"error", sendErr.Error())
		return oops.Code(CodeDeliveryFailed).
			With("operation", "send temporary password").
			With("user_id", user.ID.String()).
			Errorf("email message was not sent, please try again")
	}
	return nil
}

// UpdatePassword replaces a password after checking the old one.
func (s *Service) UpdatePassword(ctx context.Context, email, oldPassword, newPassword, confirmation string) (err error) {
	defer func() { recordOperation(OpUpdatePassword, err) }()

	if email == "" || oldPassword == "" || newPassword == "" || confirmation == "" {
		return oops.Code(CodeMissingFields).
			Errorf("submit such fields: email, password, newPassword and newPasswordConf")
	}

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).Errorf("user with such email was not found")
		}
		return oops.Code(CodeStorageFailure).With("operation", "get user by email").Wrap(err)
	}

	valid, err := s.credentials.VerifyPassword(user, oldPassword)
	if err != nil {
		return oops.Code(CodeStorageFailure).
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return oops.Code(CodeInvalidPassword).Errorf("invalid password")
	}

	if newPassword != confirmation {
		return oops.Code(CodePasswordMismatch).Errorf("new passwords do not match")
	}

	return s.credentials.UpdatePassword(ctx, user.ID, newPassword)
}

// Authenticate resolves a session token to its user. It returns only after
// the user lookup finished.
func (s *Service) Authenticate(ctx context.Context, token string) (user *User, err error) {
	defer func() { recordOperation(OpAuthenticate, err) }()

	userID, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err = s.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).Errorf("no such user found")
		}
		return nil, oops.Code(CodeStorageFailure).With("operation", "get user by id").Wrap(err)
	}
	return user, nil
}

// RequireRole returns AUTH_NOT_AUTHORIZED unless user has role.
func (s *Service) RequireRole(user *User, role Role) error {
	if user == nil || user.Role != role {
		return oops.Code(CodeNotAuthorized).With("required_role", string(role)).Errorf("you are not an %s", role)
	}
	return nil
}

// SessionExpiry returns how long issued sessions live.
func (s *Service) SessionExpiry() time.Duration {
	return s.sessions.Expiry()
}

func (s *Service) openSession(userID ulid.ULID) (*SessionResult, error) {
	token, expiresAt, err := s.sessions.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) link(path string, query url.Values) string {
	link := s.publicURL + path
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

func errInvalidOrExpiredToken() error {
	return oops.Code(CodeInvalidOrExpiredToken).Errorf("invalid or expired password reset token")
}
