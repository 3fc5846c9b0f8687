// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/holomush/tasklist/internal/auth"
)

// LogNotifier drops messages and logs only the envelope. It stands in for
// SMTP when no mail host is configured; reset links are not recoverable
// from its output.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs recipient and subject and reports success.
func (n *LogNotifier) Send(ctx context.Context, recipient, subject, _ string) error {
	n.logger.InfoContext(ctx, "email suppressed, no mail host configured",
		"recipient", recipient,
		"subject", subject)
	return nil
}

var _ auth.Notifier = (*LogNotifier)(nil)
