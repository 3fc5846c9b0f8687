// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, TASKLIST_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/auth"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. TASKLIST_SESSION_SECRET
// sets session.secret.
const EnvPrefix = "TASKLIST_"

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete service configuration.
type Config struct {
	Env      string         `koanf:"env"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Reset    ResetConfig    `koanf:"reset"`
	Password PasswordConfig `koanf:"password"`
	Mail     MailConfig     `koanf:"mail"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// PublicURL is the externally reachable base URL put into emailed links.
	PublicURL       string        `koanf:"public_url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig configures session tokens and the cookie carrying them.
type SessionConfig struct {
	Secret     string        `koanf:"secret"`
	Expiry     time.Duration `koanf:"expiry"`
	CookieName string        `koanf:"cookie_name"`
}

// ResetConfig configures password reset tokens. A zero SweepInterval
// disables the background purge.
type ResetConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// PasswordConfig bounds password length.
type PasswordConfig struct {
	MinLength int `koanf:"min_length"`
	MaxLength int `koanf:"max_length"`
}

// MailConfig configures SMTP delivery. An empty Host logs messages instead
// of sending them.
type MailConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	Timeout  time.Duration `koanf:"timeout"`
	Retries  uint64        `koanf:"retries"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"env":                   EnvProduction,
		"http.addr":             ":3000",
		"http.public_url":       "http://localhost:3000",
		"http.shutdown_timeout": "10s",
		"metrics.addr":          "127.0.0.1:9100",
		"log.format":            "json",
		"log.level":             "info",
		"session.expiry":        "72h",
		"session.cookie_name":   "jwt",
		"reset.ttl":             "1h",
		"reset.sweep_interval":  "10m",
		"password.min_length":   6,
		"password.max_length":   20,
		"mail.port":             587,
		"mail.from":             "noreply@localhost",
		"mail.timeout":          "10s",
		"mail.retries":          2,
	}
}

// Load builds a Config. path may be empty. flags may be nil; only flags
// the user changed override other sources, and a flag named
// "database-url" maps to the key "database.url".
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	return cfg, nil
}

// envKey maps TASKLIST_SESSION_COOKIE_NAME to session.cookie_name: the
// first underscore separates the section, the rest belong to the field.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + field
}

// flagKey maps a changed flag such as --session-secret to session.secret.
// Unchanged flags are skipped so their defaults do not mask file or env
// values.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if section, field, ok := strings.Cut(key, "_"); ok {
			key = section + "." + field
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Policy returns the password policy the bounds describe.
func (p PasswordConfig) Policy() auth.PasswordPolicy {
	return auth.PasswordPolicy{MinLength: p.MinLength, MaxLength: p.MaxLength}
}

// IsDevelopment reports whether verbose error responses are enabled.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	switch {
	case c.Env != EnvDevelopment && c.Env != EnvProduction:
		return invalid("env", "env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	case c.Database.URL == "":
		return invalid("database.url", "database.url is required")
	case c.Session.Secret == "":
		return invalid("session.secret", "session.secret is required")
	case c.Session.Expiry <= 0:
		return invalid("session.expiry", "session.expiry must be positive")
	case c.Session.CookieName == "":
		return invalid("session.cookie_name", "session.cookie_name is required")
	case c.Reset.TTL <= 0:
		return invalid("reset.ttl", "reset.ttl must be positive")
	case c.Reset.SweepInterval < 0:
		return invalid("reset.sweep_interval", "reset.sweep_interval must not be negative")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	case c.HTTP.Addr == "":
		return invalid("http.addr", "http.addr is required")
	case c.Mail.Timeout <= 0:
		return invalid("mail.timeout", "mail.timeout must be positive")
	}

	if err := c.Password.Policy().Check(); err != nil {
		return invalid("password", "password.min_length and password.max_length: %v", err)
	}

	u, err := url.Parse(c.HTTP.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("http.public_url", "http.public_url must be an absolute URL, got %q", c.HTTP.PublicURL)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}
