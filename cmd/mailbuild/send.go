package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/notify"
)

// runSendCmd sends one built email to the test recipients.
func runSendCmd(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseSendFlags(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: send takes exactly one email name", ErrUsage)
	}

	p, err := loadProject(&flags.common, env)
	if err != nil {
		return err
	}
	mergeSendFlags(flags, p.cfg)

	name, htmlPath := resolveCompiledEmail(positional[0], p.cfg.Paths.Dist)
	content, err := os.ReadFile(htmlPath) // #nosec G304 -- user-selected built email
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadEmail, err)
	}

	subject := flags.subject
	if subject == "" {
		subject = name
	}
	email := &notify.Email{
		To:      p.cfg.Send.To,
		Subject: subject,
		HTML:    string(content),
		Tag:     p.cfg.Send.Tag,
	}

	sender, err := newSender(p.cfg, p.secrets, env)
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, email); err != nil {
		return err
	}

	if !flags.common.quiet {
		verb := "Sent"
		if p.cfg.Send.DryRun {
			verb = "Would send"
		}
		fmt.Fprintf(env.Stdout, "%s %s to %s\n", verb, name, strings.Join(email.To, ", "))
	}
	return nil
}

// mergeSendFlags merges CLI flags into config. CLI values override config values.
func mergeSendFlags(flags *sendFlags, cfg *config.Config) {
	if len(flags.to) > 0 {
		cfg.Send.To = flags.to
	}
	if flags.tag != "" {
		cfg.Send.Tag = flags.tag
	}
	if flags.dryRun {
		cfg.Send.DryRun = true
	}
}

// resolveCompiledEmail accepts an email name ("promo/sale") or a path to
// an .html file and returns the name and file path.
func resolveCompiledEmail(arg, dist string) (name, htmlPath string) {
	if strings.HasSuffix(arg, ".html") && fileutil.FileExists(arg) {
		return strings.TrimSuffix(filepath.Base(arg), ".html"), arg
	}
	name = strings.TrimSuffix(filepath.ToSlash(arg), ".html")
	return name, filepath.Join(dist, filepath.FromSlash(name)+".html")
}

// newSender returns a logging sender for dry runs and a Postmark sender
// otherwise.
func newSender(cfg *config.Config, secrets *secretsConfig, env *Environment) (notify.Sender, error) {
	if cfg.Send.DryRun {
		return notify.NewDryRunSender(env.Logger, cfg.Send.SubjectPrefix), nil
	}
	return notify.NewPostmarkSender(notify.PostmarkConfig{
		ServerToken:   secrets.PostmarkServerToken,
		AccountToken:  secrets.PostmarkAccountToken,
		From:          cfg.Send.From,
		SubjectPrefix: cfg.Send.SubjectPrefix,
		Tag:           cfg.Send.Tag,
	})
}
