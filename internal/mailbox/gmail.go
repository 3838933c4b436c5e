package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
)

// TokenFunc returns a current OAuth access token for the mailbox owner.
type TokenFunc func(ctx context.Context) (string, error)

type GmailSource struct {
	token      TokenFunc
	maxResults int64
	limiter    *rate.Limiter
	options    []option.ClientOption
	logger     *logger.Logger
}

func NewGmailSource(token TokenFunc, maxResults int, requestsPerSecond float64, logger *logger.Logger, opts ...option.ClientOption) *GmailSource {
	return &GmailSource{
		token:      token,
		maxResults: int64(maxResults),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		options:    opts,
		logger:     logger,
	}
}

func (g *GmailSource) FetchMessages(ctx context.Context) ([]model.RawMessage, error) {
	accessToken, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, g.options...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	user := "me"
	list, err := svc.Users.Messages.List(user).LabelIds("INBOX").MaxResults(g.maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox messages: %w", err)
	}

	messages := make([]model.RawMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		message, err := svc.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			g.logger.Error("Failed to get message:", ref.Id, err)
			continue
		}
		messages = append(messages, FromGmail(message))
	}

	g.logger.Info("Fetched", len(messages), "messages from Gmail")
	return messages, nil
}

// FromGmail converts a full-format Gmail message.
func FromGmail(message *gmail.Message) model.RawMessage {
	raw := model.RawMessage{
		ID:          message.Id,
		BodyPreview: message.Snippet,
		Importance:  string(model.ImportanceNormal),
	}
	if message.InternalDate > 0 {
		raw.ReceivedTime = time.UnixMilli(message.InternalDate).UTC().Format(time.RFC3339)
	}

	read := true
	flagged := false
	for _, label := range message.LabelIds {
		switch label {
		case "STARRED":
			flagged = true
		case "IMPORTANT":
			raw.Importance = string(model.ImportanceHigh)
		case "UNREAD":
			read = false
		}
	}
	raw.IsRead = model.Bool(read)
	raw.IsFlagged = model.Bool(flagged)

	if message.Payload == nil {
		raw.HasAttachments = model.Bool(false)
		return raw
	}

	for _, header := range message.Payload.Headers {
		switch header.Name {
		case "Subject":
			raw.Subject = decodeHeader(header.Value)
		case "From":
			raw.From = parseAddress(header.Value)
		case "Sender":
			raw.Sender = parseAddress(header.Value)
		}
	}

	content := &bodyContent{}
	collectGmailParts(message.Payload, content)
	raw.Body = content.text()
	raw.HasAttachments = model.Bool(content.attachments > 0)

	return raw
}

func collectGmailParts(part *gmail.MessagePart, content *bodyContent) {
	if part.Filename != "" {
		content.attachments++
		return
	}
	for _, child := range part.Parts {
		collectGmailParts(child, content)
	}
	if part.Body == nil || part.Body.Data == "" {
		return
	}

	data, err := decodeGmailData(part.Body.Data)
	if err != nil {
		return
	}
	switch {
	case part.MimeType == "text/plain" && content.plain == "":
		content.plain = data
	case part.MimeType == "text/html" && content.html == "":
		content.html = data
	}
}

// Gmail bodies are base64url, with or without padding.
func decodeGmailData(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}
