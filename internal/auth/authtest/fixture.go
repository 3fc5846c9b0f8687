// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/tasklist/internal/auth"
)

// FastArgon2Params keep hashing cheap in tests.
var FastArgon2Params = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// Test configuration used by NewFixture.
const (
	Secret        = "test-secret-key"
	SessionExpiry = time.Hour
	ResetTTL      = time.Hour
	PublicURL     = "http://tasks.test"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a Clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Fixture wires a complete auth.Service over in-memory repositories.
type Fixture struct {
	Clock       *Clock
	Users       *UserRepository
	Resets      *ResetTokenRepository
	Notifier    *Notifier
	Hasher      *auth.Argon2idHasher
	Credentials *auth.CredentialStore
	Sessions    *auth.SessionTokenService
	ResetStore  *auth.ResetTokenStore
	Service     *auth.Service
}

// NewFixture builds a Fixture with the default password policy.
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	return NewFixtureWithPolicy(t, auth.DefaultPasswordPolicy)
}

// NewFixtureWithPolicy builds a Fixture whose credentials use policy.
func NewFixtureWithPolicy(t testing.TB, policy auth.PasswordPolicy) *Fixture {
	t.Helper()

	f := &Fixture{
		Clock:    NewClock(time.Now().UTC()),
		Users:    NewUserRepository(),
		Resets:   NewResetTokenRepository(),
		Notifier: &Notifier{},
		Hasher:   auth.NewArgon2idHasherWithParams(FastArgon2Params),
	}

	var err error
	f.Credentials, err = auth.NewCredentialStore(f.Users, f.Hasher, policy)
	require.NoError(t, err)

	f.Sessions, err = auth.NewSessionTokenService(Secret, SessionExpiry, auth.WithSessionClock(f.Clock.Now))
	require.NoError(t, err)

	f.ResetStore, err = auth.NewResetTokenStore(f.Resets, f.Hasher, ResetTTL, auth.WithResetClock(f.Clock.Now))
	require.NoError(t, err)

	f.Service, err = auth.NewService(f.Credentials, f.Sessions, f.ResetStore, f.Notifier, PublicURL)
	require.NoError(t, err)

	return f
}
