package model

import "strings"

// Address is a mailbox participant as reported by the host.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// RawMessage is a message record as supplied by a mailbox source, before
// normalization. Optional fields are pointers so absence can be told apart
// from an explicit false.
type RawMessage struct {
	ID             string   `json:"id,omitempty"`
	Subject        string   `json:"subject"`
	From           *Address `json:"from,omitempty"`
	Sender         *Address `json:"sender,omitempty"`
	ReceivedTime   string   `json:"receivedTime"`
	HasAttachments *bool    `json:"hasAttachments,omitempty"`
	Importance     string   `json:"importance,omitempty"`
	IsRead         *bool    `json:"isRead,omitempty"`
	IsFlagged      *bool    `json:"isFlagged,omitempty"`
	Body           string   `json:"body,omitempty"`
	BodyPreview    string   `json:"bodyPreview,omitempty"`
}

// Originator prefers From and falls back to Sender.
func (r RawMessage) Originator() Address {
	if r.From != nil && (r.From.Address != "" || r.From.Name != "") {
		return *r.From
	}
	if r.Sender != nil {
		return *r.Sender
	}
	return Address{}
}

// Text prefers the full body and falls back to the preview.
func (r RawMessage) Text() string {
	if strings.TrimSpace(r.Body) != "" {
		return r.Body
	}
	return r.BodyPreview
}

// BoolValue dereferences an optional flag, treating absence as false.
func BoolValue(b *bool) bool {
	return b != nil && *b
}

// Bool returns a pointer to b, for building raw records.
func Bool(b bool) *bool {
	return &b
}
