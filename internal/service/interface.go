package service

import (
	"context"
	"errors"
	"time"

	"followup-tracker/internal/feedback"
	"followup-tracker/internal/model"
	"followup-tracker/internal/scoring"
	"followup-tracker/internal/view"
)

var (
	// ErrMailboxUnavailable wraps any failure of the mailbox source during a refresh.
	ErrMailboxUnavailable = errors.New("mailbox unavailable")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// MailboxSource supplies raw messages from the host mailbox
type MailboxSource interface {
	FetchMessages(ctx context.Context) ([]model.RawMessage, error)
}

// RefreshResult counts what one refresh or import did to the tracked set.
type RefreshResult struct {
	Fetched   int `json:"fetched"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// MessageDetail is a tracked message with the reasoning behind its tier.
type MessageDetail struct {
	*model.TrackedMessage
	Breakdown      scoring.Breakdown `json:"breakdown"`
	Recommendation string            `json:"recommendation"`
}

// Change is emitted after every successful mutation of the tracked state.
type Change struct {
	Reason  string       `json:"reason"`
	Summary view.Summary `json:"summary"`
}

type TrackerService interface {
	Load(ctx context.Context) error
	Refresh(ctx context.Context) (RefreshResult, error)
	Ingest(ctx context.Context, raws []model.RawMessage) (RefreshResult, error)
	MarkAction(ctx context.Context, messageID string, kind model.ActionKind) (feedback.Result, error)
	View(filter view.Filter) []MessageDetail
	Stats(filter view.Filter) view.Summary
	Message(messageID string) (MessageDetail, error)
	Preview(raw model.RawMessage) MessageDetail
	ClearAll(ctx context.Context) error
	OnChange(listener func(Change))
}

type AuthService interface {
	SignIn(ctx context.Context, providerID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	Activate(ctx context.Context, accountID string) (*model.Account, error)
	AccessToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context, accountID string)
}
