package mailbox

import (
	"context"

	"followup-tracker/internal/model"
)

// MockSource is a mock mailbox source for testing
type MockSource struct {
	FetchMessagesFunc func(ctx context.Context) ([]model.RawMessage, error)
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

func (m *MockSource) FetchMessages(ctx context.Context) ([]model.RawMessage, error) {
	if m.FetchMessagesFunc != nil {
		return m.FetchMessagesFunc(ctx)
	}

	// Default mock behavior: an empty inbox
	return []model.RawMessage{}, nil
}

// StaticSource serves a fixed batch, used for one-shot imports.
type StaticSource []model.RawMessage

func (s StaticSource) FetchMessages(ctx context.Context) ([]model.RawMessage, error) {
	return append([]model.RawMessage(nil), s...), nil
}
