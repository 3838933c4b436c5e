package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
)

type IMAPSource struct {
	addr     string
	username string
	password string
	mailbox  string
	limit    uint32
	logger   *logger.Logger
}

func NewIMAPSource(server string, port int, username, password, mailbox string, limit int, logger *logger.Logger) *IMAPSource {
	return &IMAPSource{
		addr:     fmt.Sprintf("%s:%d", server, port),
		username: username,
		password: password,
		mailbox:  mailbox,
		limit:    uint32(limit),
		logger:   logger,
	}
}

// FetchMessages reads the newest messages of the configured mailbox without
// touching their \Seen flag.
func (s *IMAPSource) FetchMessages(ctx context.Context) ([]model.RawMessage, error) {
	c, err := client.DialTLS(s.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.addr, err)
	}
	defer c.Logout()

	if err := c.Login(s.username, s.password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	mbox, err := c.Select(s.mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", s.mailbox, err)
	}
	if mbox.Messages == 0 {
		return []model.RawMessage{}, nil
	}

	from := uint32(1)
	if s.limit > 0 && mbox.Messages > s.limit {
		from = mbox.Messages - s.limit + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	fetched := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, fetched)
	}()

	var messages []model.RawMessage
	for msg := range fetched {
		if ctx.Err() != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := FromIMAP(body, msg.Flags, msg.InternalDate)
		if err != nil {
			s.logger.Warn("Skipping message", msg.Uid, ":", err)
			continue
		}
		if raw.ID == "" {
			raw.ID = fmt.Sprintf("%s:%d:%d", s.mailbox, mbox.UidValidity, msg.Uid)
		}
		messages = append(messages, raw)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error during fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Info("Fetched", len(messages), "messages from", s.mailbox)
	return messages, nil
}

// FromIMAP parses a fetched message literal and applies its IMAP flags.
func FromIMAP(body io.Reader, flags []string, internalDate time.Time) (model.RawMessage, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return model.RawMessage{}, err
	}
	raw, err := ParseMessage(bytes.NewReader(data))
	if err != nil {
		return model.RawMessage{}, err
	}

	read, flagged := false, false
	for _, flag := range flags {
		switch flag {
		case imap.SeenFlag:
			read = true
		case imap.FlaggedFlag:
			flagged = true
		}
	}
	raw.IsRead = model.Bool(read)
	raw.IsFlagged = model.Bool(flagged)

	if raw.ReceivedTime == "" && !internalDate.IsZero() {
		raw.ReceivedTime = internalDate.UTC().Format(time.RFC3339)
	}
	return raw, nil
}
