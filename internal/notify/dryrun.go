package notify

import (
	"context"
	"log/slog"
)

// DryRunSender validates and logs emails without delivering them.
type DryRunSender struct {
	logger        *slog.Logger
	subjectPrefix string
}

// NewDryRunSender creates a sender that only logs.
func NewDryRunSender(logger *slog.Logger, subjectPrefix string) *DryRunSender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DryRunSender{logger: logger, subjectPrefix: subjectPrefix}
}

// Send implements Sender.
func (s *DryRunSender) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := email.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email not sent (dry run)",
		"to", email.To,
		"subject", s.subjectPrefix+email.Subject,
		"tag", email.Tag,
		"bytes", len(email.HTML),
	)
	return nil
}

// Compile-time interface check.
var _ Sender = (*DryRunSender)(nil)
