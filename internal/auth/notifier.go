// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
)

// ErrDeliveryUnknown marks a Send failure after which the message may still
// arrive, such as a timed-out SMTP conversation.
var ErrDeliveryUnknown = errors.New("delivery outcome unknown")

// Notifier delivers email. A nil error means the transport accepted the
// message, not that it was delivered. An error wrapping ErrDeliveryUnknown
// means the message may have been sent anyway.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
