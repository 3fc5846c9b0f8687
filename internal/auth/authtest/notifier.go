// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authtest

import (
	"context"
	"net/url"
	"regexp"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/tasklist/internal/auth"
)

// Message is an email captured by Notifier.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

var (
	linkPattern         = regexp.MustCompile(`https?://\S+`)
	tempPasswordPattern = regexp.MustCompile(`temporary password: (\S+)`)
)

// Link returns the first URL in the message body.
func (m Message) Link() (*url.URL, error) {
	raw := linkPattern.FindString(m.Body)
	if raw == "" {
		return nil, oops.Errorf("no link in message body")
	}
	return url.Parse(raw) //nolint:wrapcheck // test helper
}

// TemporaryPassword returns the password carried by a reset-completed
// message, or "" if there is none.
func (m Message) TemporaryPassword() string {
	match := tempPasswordPattern.FindStringSubmatch(m.Body)
	if match == nil {
		return ""
	}
	return match[1]
}

// Notifier records every message. When Err is set, Send fails with it and
// records nothing.
type Notifier struct {
	mu       sync.Mutex
	Err      error
	messages []Message
}

// Send records the message or returns Err.
func (n *Notifier) Send(_ context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, Message{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// SetErr changes the failure returned by Send.
func (n *Notifier) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Err = err
}

// Messages returns a copy of the recorded messages.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// Last returns the most recent message, or false if none was sent.
func (n *Notifier) Last() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return Message{}, false
	}
	return n.messages[len(n.messages)-1], true
}

var _ auth.Notifier = (*Notifier)(nil)
