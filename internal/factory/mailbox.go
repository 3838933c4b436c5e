package factory

import (
	"fmt"

	"followup-tracker/internal/config"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/mailbox"
	"followup-tracker/internal/service"
)

// NewMailboxSource builds the configured source. It returns a nil source for
// "none"; refreshes then fail with ErrMailboxUnavailable. token is only used
// by the gmail source.
func NewMailboxSource(cfg *config.Config, token mailbox.TokenFunc, log *logger.Logger) (service.MailboxSource, error) {
	switch cfg.MailboxSource {
	case config.SourceGmail:
		return mailbox.NewGmailSource(token, cfg.MaxFetchMessages, cfg.GmailRPS, log.With("source", "gmail")), nil
	case config.SourceIMAP:
		return mailbox.NewIMAPSource(cfg.IMAPServer, cfg.IMAPPort, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPMailbox, cfg.MaxFetchMessages, log.With("source", "imap")), nil
	case config.SourceMbox:
		return mailbox.NewMboxSource(cfg.MboxPath, cfg.MaxFetchMessages, log.With("source", "mbox")), nil
	case config.SourceNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported MAILBOX_SOURCE: %s", cfg.MailboxSource)
	}
}
