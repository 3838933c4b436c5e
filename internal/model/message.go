package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the tier assigned by the scoring engine.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders tiers for display, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Status is the lifecycle state of a tracked message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReplied   Status = "replied"
	StatusForwarded Status = "forwarded"
	StatusSnoozed   Status = "snoozed"
	StatusCompleted Status = "completed"
)

// Importance mirrors the host mailbox importance flag.
type Importance string

const (
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// ParseImportance maps host values onto the two supported levels.
// Anything other than "high" counts as normal.
func ParseImportance(s string) Importance {
	if strings.EqualFold(strings.TrimSpace(s), string(ImportanceHigh)) {
		return ImportanceHigh
	}
	return ImportanceNormal
}

// ActionKind is a user action performed on a tracked message.
type ActionKind string

const (
	ActionReplied   ActionKind = "replied"
	ActionForwarded ActionKind = "forwarded"
	ActionCompleted ActionKind = "completed"
	ActionSnooze    ActionKind = "snooze"
)

// ParseActionKind validates an action name coming from the presentation boundary.
func ParseActionKind(s string) (ActionKind, error) {
	switch kind := ActionKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case ActionReplied, ActionForwarded, ActionCompleted, ActionSnooze:
		return kind, nil
	default:
		return "", fmt.Errorf("unsupported action: %q", s)
	}
}

// ActionRecord is one entry in a message's own action history.
type ActionRecord struct {
	Kind      ActionKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
}

type TrackedMessage struct {
	ID             string         `json:"id"`
	Subject        string         `json:"subject"`
	SenderName     string         `json:"sender_name"`
	SenderAddress  string         `json:"sender_address"`
	ReceivedAt     time.Time      `json:"received_at"`
	HasAttachments bool           `json:"has_attachments"`
	Importance     Importance     `json:"importance"`
	IsFlagged      bool           `json:"is_flagged"`
	Body           string         `json:"body"`
	Priority       Priority       `json:"priority"`
	Status         Status         `json:"status"`
	LastUpdated    time.Time      `json:"last_updated"`
	Actions        []ActionRecord `json:"actions"`
}

func NewTrackedMessage(id, subject, senderName, senderAddress, body string, receivedAt, now time.Time) *TrackedMessage {
	return &TrackedMessage{
		ID:            id,
		Subject:       subject,
		SenderName:    senderName,
		SenderAddress: senderAddress,
		ReceivedAt:    receivedAt,
		Importance:    ImportanceNormal,
		Body:          body,
		Priority:      PriorityLow,
		Status:        StatusPending,
		LastUpdated:   now,
		Actions:       []ActionRecord{},
	}
}

// SenderKey is the identity used to look up learning weights: the lowercase
// address, or the lowercase display name when no address is known.
func (m *TrackedMessage) SenderKey() string {
	if addr := strings.TrimSpace(m.SenderAddress); addr != "" {
		return strings.ToLower(addr)
	}
	return strings.ToLower(strings.TrimSpace(m.SenderName))
}

// IsActive reports whether the message still shows up in views.
func (m *TrackedMessage) IsActive() bool {
	return m.Status != StatusCompleted
}
