package mailbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-mbox"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
)

// MboxSource reads messages from a local mbox file.
type MboxSource struct {
	path   string
	limit  int
	logger *logger.Logger
}

// NewMboxSource keeps the last limit messages of the file; zero keeps all.
func NewMboxSource(path string, limit int, logger *logger.Logger) *MboxSource {
	return &MboxSource{path: path, limit: limit, logger: logger}
}

func (s *MboxSource) FetchMessages(ctx context.Context) ([]model.RawMessage, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	messages, err := ReadMbox(ctx, f, s.logger)
	if err != nil {
		return nil, err
	}
	if s.limit > 0 && len(messages) > s.limit {
		messages = messages[len(messages)-s.limit:]
	}

	s.logger.Info("Read", len(messages), "messages from", s.path)
	return messages, nil
}

// ReadMbox parses every message of an mbox stream. Unparseable messages are
// skipped.
func ReadMbox(ctx context.Context, r io.Reader, logger *logger.Logger) ([]model.RawMessage, error) {
	reader := mbox.NewReader(r)
	messages := []model.RawMessage{}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox: %w", err)
		}

		raw, header, err := parseMessage(entry)
		if err != nil {
			logger.Warn("Skipping mbox message", i, ":", err)
			continue
		}
		// Status and X-Status are the flags written by mbox-based clients.
		raw.IsRead = model.Bool(strings.Contains(header.Get("Status"), "R"))
		raw.IsFlagged = model.Bool(strings.Contains(header.Get("X-Status"), "F"))
		messages = append(messages, raw)
	}
	return messages, nil
}
