// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail delivers notification emails over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"

	"github.com/holomush/tasklist/internal/auth"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	// Retries is the number of attempts after the first one.
	Retries uint64
}

// Sender delivers messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SendsTotal counts delivery attempts by outcome.
var SendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasklist_mail_sends_total",
		Help: "Total number of email delivery attempts by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers the mail metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SendsTotal)
}

const defaultBackoff = 200 * time.Millisecond

// SMTPNotifier implements auth.Notifier with gomail and bounded retry.
type SMTPNotifier struct {
	from    string
	sender  Sender
	timeout time.Duration
	retries uint64
	backoff time.Duration
	logger  *slog.Logger

	// inflight tracks DialAndSend calls, including ones that outlived
	// their attempt timeout.
	inflight sync.WaitGroup
}

// Option configures an SMTPNotifier.
type Option func(*SMTPNotifier)

// WithSender replaces the SMTP dialer.
func WithSender(s Sender) Option {
	return func(n *SMTPNotifier) { n.sender = s }
}

// WithBackoff sets the base delay of the exponential backoff.
func WithBackoff(d time.Duration) Option {
	return func(n *SMTPNotifier) { n.backoff = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *SMTPNotifier) { n.logger = l }
}

// NewSMTPNotifier creates an SMTPNotifier from cfg.
func NewSMTPNotifier(cfg Config, opts ...Option) (*SMTPNotifier, error) {
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail sender address is required")
	}
	if cfg.Timeout <= 0 {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("timeout", cfg.Timeout.String()).Errorf("mail timeout must be positive")
	}

	n := &SMTPNotifier{
		from:    cfg.From,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		backoff: defaultBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.sender == nil {
		if cfg.Host == "" {
			return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("mail host is required")
		}
		n.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return n, nil
}

// Send delivers a plain-text message, retrying failures the SMTP server
// reported. An attempt that times out is not retried: gomail cannot cancel
// it, so the message may still go out, and the returned error wraps
// auth.ErrDeliveryUnknown. The body is never logged.
func (n *SMTPNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return oops.Code("MAIL_INVALID_RECIPIENT").Errorf("recipient address is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	backoff := retry.WithMaxRetries(n.retries, retry.NewExponential(n.backoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := n.sendOnce(ctx, msg)
		switch {
		case err == nil:
			SendsTotal.WithLabelValues("success").Inc()
			return nil
		case errors.Is(err, auth.ErrDeliveryUnknown):
			SendsTotal.WithLabelValues("timeout").Inc()
			n.logger.WarnContext(ctx, "email delivery attempt timed out, not retrying",
				"recipient", recipient,
				"subject", subject,
				"attempt", attempt,
				"timeout", n.timeout.String())
			return err
		default:
			SendsTotal.WithLabelValues("error").Inc()
			n.logger.WarnContext(ctx, "email delivery attempt failed",
				"recipient", recipient,
				"subject", subject,
				"attempt", attempt,
				"error", err.Error())
			return retry.RetryableError(err)
		}
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("recipient", recipient).
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// sendOnce runs one delivery bounded by the per-attempt timeout. gomail has
// no context support, so a timed-out send finishes in the background and is
// tracked by inflight.
func (n *SMTPNotifier) sendOnce(ctx context.Context, msg *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		done <- n.sender.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err //nolint:wrapcheck // wrapped by Send
	case <-ctx.Done():
		return oops.Code("MAIL_TIMEOUT").
			With("timeout", n.timeout.String()).
			Wrap(fmt.Errorf("%w: %w", auth.ErrDeliveryUnknown, ctx.Err()))
	}
}

// Wait blocks until every delivery started by Send has returned, or ctx is
// done.
func (n *SMTPNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("MAIL_WAIT_TIMEOUT").Wrap(ctx.Err())
	}
}

var _ auth.Notifier = (*SMTPNotifier)(nil)
