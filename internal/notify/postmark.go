package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

// PostmarkAPI is the subset of the Postmark client used for sending.
type PostmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkConfig configures the Postmark sender.
type PostmarkConfig struct {
	ServerToken   string
	AccountToken  string // Optional; only needed for account-level API calls
	From          string
	SubjectPrefix string // Prepended to every subject, e.g. "[TEST] "
	Tag           string // Default tag when the email has none
}

// PostmarkOption configures a PostmarkSender.
type PostmarkOption func(*PostmarkSender)

// WithPostmarkAPI replaces the HTTP client, mainly for tests.
func WithPostmarkAPI(api PostmarkAPI) PostmarkOption {
	return func(s *PostmarkSender) {
		s.api = api
	}
}

// PostmarkSender sends through Postmark's transactional API.
type PostmarkSender struct {
	api    PostmarkAPI
	config PostmarkConfig
}

// NewPostmarkSender creates a Postmark-backed sender.
func NewPostmarkSender(cfg PostmarkConfig, opts ...PostmarkOption) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrSenderConfig)
	}
	if cfg.From == "" || !isValidAddress(cfg.From) {
		return nil, fmt.Errorf("%w: from must be a valid email address", ErrSenderConfig)
	}

	s := &PostmarkSender{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil {
		s.api = postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	}
	return s, nil
}

// Send implements Sender. Link tracking is off so proofs match production links.
func (s *PostmarkSender) Send(ctx context.Context, email *Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	tag := email.Tag
	if tag == "" {
		tag = s.config.Tag
	}

	resp, err := s.api.SendEmail(ctx, postmark.Email{
		From:     s.config.From,
		To:       strings.Join(email.To, ","),
		Subject:  s.config.SubjectPrefix + email.Subject,
		Tag:      tag,
		HTMLBody: email.HTML,
		TextBody: email.Text,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// Compile-time interface check.
var _ Sender = (*PostmarkSender)(nil)
