// Package notify delivers compiled emails to test inboxes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Sentinel errors for test sends.
var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrSendFailed   = errors.New("failed to send email")
	ErrSenderConfig = errors.New("invalid sender configuration")
)

// MaxRecipients is the per-message recipient limit.
const MaxRecipients = 50

// Email is a fully prepared message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string // Optional plain-text part
	Tag     string
}

// Validate checks recipients, subject and body.
func (e *Email) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil email", ErrInvalidEmail)
	}
	if len(e.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidEmail)
	}
	if len(e.To) > MaxRecipients {
		return fmt.Errorf("%w: %d recipients (max %d)", ErrInvalidEmail, len(e.To), MaxRecipients)
	}
	for _, to := range e.To {
		if !isValidAddress(to) {
			return fmt.Errorf("%w: recipient %q", ErrInvalidEmail, to)
		}
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidEmail)
	}
	if strings.TrimSpace(e.HTML) == "" {
		return fmt.Errorf("%w: empty HTML body", ErrInvalidEmail)
	}
	return nil
}

// Sender delivers an email message.
type Sender interface {
	// Send delivers the email. The Email must have To, Subject and HTML set.
	Send(ctx context.Context, email *Email) error
}

// isValidAddress accepts "user@host" and "Name <user@host>".
func isValidAddress(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && strings.Contains(parsed.Address, "@")
}
